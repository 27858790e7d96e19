package repository

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/brandforge/contentpilot/internal/store"
	"github.com/brandforge/contentpilot/pkg/logger"
)

// MaxCodeAttempts caps wrong guesses against one issued code.
const MaxCodeAttempts = 5

type VerifyRepository interface {
	// IssueCode creates a 6-digit code for the email and stores its hash.
	// Reissuing replaces any previous code.
	IssueCode(ctx context.Context, email string, ttl time.Duration) (string, error)

	// PeekCode checks a code against the issued one without invalidating
	// it. Wrong guesses still count against the attempt cap.
	PeekCode(ctx context.Context, email, code string) (bool, error)

	// ConsumeCode checks a code and invalidates it on success. Expired,
	// exhausted or wrong codes return false.
	ConsumeCode(ctx context.Context, email, code string) (bool, error)

	Clear(ctx context.Context, email string) error
}

type issuedCode struct {
	CodeHash  string    `json:"code_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
}

type verifyRepository struct {
	store store.Store
}

func NewVerifyRepository(st store.Store) VerifyRepository {
	return &verifyRepository{store: st}
}

func (r *verifyRepository) IssueCode(ctx context.Context, email string, ttl time.Duration) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}

	raw, err := json.Marshal(issuedCode{
		CodeHash:  string(hash),
		ExpiresAt: time.Now().Add(ttl),
	})
	if err != nil {
		return "", err
	}

	if err := r.store.Set(ctx, store.KeyVerifyCode(email), raw); err != nil {
		return "", fmt.Errorf("failed to persist code: %w", err)
	}
	return code, nil
}

func (r *verifyRepository) PeekCode(ctx context.Context, email, code string) (bool, error) {
	return r.check(ctx, email, code, false)
}

func (r *verifyRepository) ConsumeCode(ctx context.Context, email, code string) (bool, error) {
	return r.check(ctx, email, code, true)
}

func (r *verifyRepository) check(ctx context.Context, email, code string, consume bool) (bool, error) {
	key := store.KeyVerifyCode(email)
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}

	var issued issuedCode
	if err := json.Unmarshal(raw, &issued); err != nil {
		logger.WarnContext(ctx, "Discarding malformed issued code", "error", err)
		_ = r.store.Remove(ctx, key)
		return false, nil
	}

	if time.Now().After(issued.ExpiresAt) || issued.Attempts >= MaxCodeAttempts {
		return false, nil
	}

	if bcrypt.CompareHashAndPassword([]byte(issued.CodeHash), []byte(code)) != nil {
		issued.Attempts++
		if updated, err := json.Marshal(issued); err == nil {
			_ = r.store.Set(ctx, key, updated)
		}
		return false, nil
	}

	if consume {
		_ = r.store.Remove(ctx, key)
	}
	return true, nil
}

func (r *verifyRepository) Clear(ctx context.Context, email string) error {
	return r.store.Remove(ctx, store.KeyVerifyCode(email))
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
