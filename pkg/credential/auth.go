package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"skemino-client/internal/jwt"
)

// ErrNoCredential is returned when no token is stored and a guest token could not be obtained
var ErrNoCredential = errors.New("no credential")

// GuestAuthenticator obtains a guest token
type GuestAuthenticator interface {
	GuestToken(ctx context.Context) (string, error)
}

// AuthClient talks to the authentication endpoints of the game server
type AuthClient struct {
	BaseURL   string
	GuestPath string
	LoginPath string
	// RecaptchaToken is sent along with guest requests when set
	RecaptchaToken string
	HTTPClient     *http.Client
}

// NewAuthClient returns a client for the server at baseURL
func NewAuthClient(baseURL, guestPath, loginPath string) *AuthClient {
	return &AuthClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		GuestPath:  guestPath,
		LoginPath:  loginPath,
		HTTPClient: &http.Client{Timeout: time.Second * 10},
	}
}

type guestRequest struct {
	RecaptchaToken string `json:"recaptchaToken,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is the body returned by the authentication endpoints
type TokenResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// ServerError is a non-2xx response from the server
type ServerError struct {
	StatusCode int
	Message    string
}

func (s ServerError) Error() string {
	return fmt.Sprintf("server responded %d: %s", s.StatusCode, s.Message)
}

// GuestToken requests a guest token
func (a *AuthClient) GuestToken(ctx context.Context) (string, error) {
	return a.post(ctx, a.GuestPath, guestRequest{RecaptchaToken: a.RecaptchaToken})
}

// Login exchanges an email and password for a registered token
func (a *AuthClient) Login(ctx context.Context, email, password string) (string, error) {
	return a.post(ctx, a.LoginPath, loginRequest{Email: email, Password: password})
}

func (a *AuthClient) post(ctx context.Context, path string, payload interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Message == "" {
			errResp.Message = http.StatusText(resp.StatusCode)
		}

		return "", ServerError{StatusCode: resp.StatusCode, Message: errResp.Message}
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", err
	}

	if tokenResp.Token == "" {
		return "", errors.New("server returned an empty token")
	}

	return tokenResp.Token, nil
}

// Resolve returns a usable token: the remembered one, then the session one,
// as long as it has not expired. Otherwise a fresh guest token is saved in the session scope.
// An unusable token is forgotten in its own scope only.
func Resolve(ctx context.Context, store Store, guest GuestAuthenticator) (string, error) {
	for _, remember := range scopes {
		tok, ok := store.Scoped(remember)
		if !ok {
			continue
		}

		claims, err := jwt.Inspect(tok)
		if err == nil && !claims.Expired(time.Now()) {
			return tok, nil
		}

		log := logrus.WithField("remembered", remember)
		if err != nil {
			log = log.WithError(err)
		} else {
			log = log.WithField("expired", true)
		}
		log.Info("stored credential is unusable")

		if err := store.Forget(remember); err != nil {
			logrus.WithError(err).Warn("could not forget stored credential")
		}
	}

	if guest == nil {
		return "", ErrNoCredential
	}

	tok, err := guest.GuestToken(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoCredential, err)
	}

	if err := store.Save(tok, false); err != nil {
		return "", err
	}

	return tok, nil
}
