package auth

import (
	"fmt"

	"github.com/pquerna/otp/totp"
)

// TOTPKey is a freshly generated second-factor secret.
type TOTPKey struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauth_url"` // for authenticator QR codes
}

// NewTOTP generates a TOTP secret for account.
func NewTOTP(account string) (TOTPKey, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
	})
	if err != nil {
		return TOTPKey{}, fmt.Errorf("generate totp: %w", err)
	}
	return TOTPKey{Secret: key.Secret(), URL: key.URL()}, nil
}

// ValidateTOTP checks code against secret for the current time step.
func ValidateTOTP(code, secret string) bool {
	if code == "" || secret == "" {
		return false
	}
	return totp.Validate(code, secret)
}
