package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

type Business struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	Name               string    `json:"name"`
	Logo               string    `json:"logo,omitempty"` // emoji or data URL
	Description        string    `json:"description"`
	Industry           string    `json:"industry"`
	AudienceReach      string    `json:"audience_reach,omitempty"`
	Region             string    `json:"region,omitempty"`
	CommunicationStyle string    `json:"communication_style"`
	CreatedAt          time.Time `json:"created_at"`
}

type CreateBusinessRequest struct {
	Name               string `json:"name"`
	Logo               string `json:"logo,omitempty"`
	Description        string `json:"description"`
	Industry           string `json:"industry"`
	AudienceReach      string `json:"audience_reach,omitempty"`
	Region             string `json:"region,omitempty"`
	CommunicationStyle string `json:"communication_style"`
}

const MaxDescriptionLength = 500

// Communication styles
const (
	StyleFormal       = "formal"
	StyleFriendly     = "friendly"
	StyleProfessional = "professional"
)

var validStyles = map[string]bool{
	StyleFormal:       true,
	StyleFriendly:     true,
	StyleProfessional: true,
}

// Industries mirrors the fixed category list offered at business creation.
var Industries = []string{
	"technology",
	"food_and_restaurants",
	"retail",
	"education",
	"health_and_beauty",
	"real_estate",
	"finance",
	"marketing_and_advertising",
	"entertainment",
	"sports_and_fitness",
	"fashion",
	"automotive",
	"construction",
	"travel",
	"other",
}

var validIndustries = func() map[string]bool {
	m := make(map[string]bool, len(Industries))
	for _, ind := range Industries {
		m[ind] = true
	}
	return m
}()

func IsValidIndustry(industry string) bool {
	return validIndustries[industry]
}

func (r *CreateBusinessRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.Region = strings.TrimSpace(r.Region)
	r.AudienceReach = strings.TrimSpace(r.AudienceReach)
	if r.CommunicationStyle == "" {
		r.CommunicationStyle = StyleProfessional
	}
}

func (r *CreateBusinessRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: business name is required", ErrValidation)
	}
	if r.Industry == "" {
		return fmt.Errorf("%w: industry is required", ErrValidation)
	}
	if !IsValidIndustry(r.Industry) {
		return fmt.Errorf("%w: unknown industry %q", ErrValidation, r.Industry)
	}
	if r.Description == "" {
		return fmt.Errorf("%w: description is required", ErrValidation)
	}
	if utf8.RuneCountInString(r.Description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description must be at most %d characters", ErrValidation, MaxDescriptionLength)
	}
	if !validStyles[r.CommunicationStyle] {
		return fmt.Errorf("%w: unknown communication style %q", ErrValidation, r.CommunicationStyle)
	}
	return nil
}
