package demoserver

import (
	"time"

	grecaptcha "github.com/ezzarghili/recaptcha-go"
)

type recaptcha interface {
	// Verify will verify the token is valid
	Verify(token string) error
}

// newRecaptcha returns nil when no secret is configured, which disables verification
func newRecaptcha(secret string) (recaptcha, error) {
	if secret == "" {
		return nil, nil
	}

	captcha, err := grecaptcha.NewReCAPTCHA(secret, grecaptcha.V3, 10*time.Second)
	if err != nil {
		return nil, err
	}

	return &captcha, nil
}
