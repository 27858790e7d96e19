package mailer

type Service interface {
	SendConfirmationCode(toEmail, toName, code string) error
	SendRecoveryCode(toEmail, code string) error
}
