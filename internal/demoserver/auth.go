package demoserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/badoux/checkmail"
	"github.com/synacor/argon2id"
	"skemino-client/internal/config"
	"skemino-client/internal/util"
	"skemino-client/pkg/credential"
)

var errInvalidEmailOrPassword = errors.New("invalid email or password")

type guestPayload struct {
	RecaptchaToken string `json:"recaptchaToken"`
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userID is the stable player id of a registered user
func userID(email string) string {
	return "user:" + strings.ToLower(email)
}

func (s *Server) userByID(id string) (config.DemoUser, bool) {
	for _, user := range s.users {
		if userID(user.Email) == id {
			return user, true
		}
	}

	return config.DemoUser{}, false
}

func (s *Server) postAuthGuest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload guestPayload
		if r.ContentLength != 0 && !decodeRequest(w, r, &payload) {
			return
		}

		if s.recaptcha != nil {
			if err := s.recaptcha.Verify(payload.RecaptchaToken); err != nil {
				writeJSONError(w, http.StatusBadRequest, err)
				return
			}
		}

		signed, err := s.signer.Sign(util.GuestID(), util.GetRandomName(), true)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err)
			return
		}

		writeJSON(w, http.StatusOK, credential.TokenResponse{Token: signed})
	}
}

func (s *Server) postAuthLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload loginPayload
		if !decodeRequest(w, r, &payload) {
			return
		}

		if err := checkmail.ValidateFormat(payload.Email); err != nil {
			writeJSONError(w, http.StatusBadRequest, errors.New("missing or invalid email address"))
			return
		}

		user, ok := s.userByID(userID(payload.Email))
		if !ok {
			// prevent timing attacks
			_ = argon2id.Compare("", "")
			writeJSONError(w, http.StatusUnauthorized, errInvalidEmailOrPassword)
			return
		}

		if err := argon2id.Compare(user.PasswordHash, payload.Password); err != nil {
			writeJSONError(w, http.StatusUnauthorized, errInvalidEmailOrPassword)
			return
		}

		signed, err := s.signer.Sign(userID(user.Email), user.Username, false)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err)
			return
		}

		writeJSON(w, http.StatusOK, credential.TokenResponse{Token: signed})
	}
}
