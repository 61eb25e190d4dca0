package demoserver

import (
	"context"
	"net/http"
	"strings"

	gmux "github.com/gorilla/mux"
	"skemino-client/internal/config"
	"skemino-client/internal/jwt"
	"skemino-client/pkg/gamestate"
)

type ctxKey int

const (
	ctxPlayerKey ctxKey = iota
)

// Server handles HTTP requests for the demo backend
type Server struct {
	*gmux.Router
	version   string
	users     []config.DemoUser
	signer    *jwt.Signer
	recaptcha recaptcha
	lobby     *Lobby

	// store for testing purposes
	authRouter *gmux.Router
}

// NewServer returns a new demo server and starts its lobby
func NewServer(version string, cfg config.Config) (*Server, error) {
	captcha, err := newRecaptcha(cfg.Demo.RecaptchaSecret)
	if err != nil {
		return nil, err
	}

	lobby := NewLobby(MatchOptionsFromConfig(cfg))
	lobby.StartShift()

	this := &Server{
		Router:    gmux.NewRouter(),
		version:   version,
		users:     cfg.Demo.Users,
		signer:    jwt.NewSigner(cfg.Demo.JWTSecret),
		recaptcha: captcha,
		lobby:     lobby,
	}

	this.authRouter = this.Router.NewRoute().Subrouter()
	this.authRouter.Use(this.authMiddleware)

	// unauthorized endpoints
	{
		r := this.Router
		r.Methods(http.MethodGet).Path("/health").Handler(this.getHealth())
		r.Methods(http.MethodPost).Path(cfg.Server.GuestPath).Handler(this.postAuthGuest())
		r.Methods(http.MethodPost).Path(cfg.Server.LoginPath).Handler(this.postAuthLogin())
	}

	// requires bearer authorization
	{
		r := this.authRouter
		r.Methods(http.MethodGet).Path(cfg.Server.WebsocketPath).Handler(this.getWS())
	}

	return this, nil
}

// Close stops the lobby and every running match
func (s *Server) Close() {
	s.lobby.EndShift()
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.FormValue("access_token")
		if token == "" {
			authHeader := strings.Split(r.Header.Get("Authorization"), " ")
			if len(authHeader) != 2 || strings.ToLower(authHeader[0]) != "bearer" {
				writeJSONError(w, http.StatusUnauthorized, nil)
				return
			}

			token = authHeader[1]
		}

		claims, err := s.signer.Validate(token)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, nil)
			return
		}

		player := &gamestate.Player{
			ID:       claims.PlayerID(),
			Username: claims.Username,
			IsGuest:  claims.Guest,
		}

		if !player.IsGuest {
			if user, ok := s.userByID(player.ID); ok {
				player.Rating = user.Rating
			}
		}

		newCtx := context.WithValue(r.Context(), ctxPlayerKey, player)
		w.Header().Set("Skemino-PlayerID", player.ID)
		next.ServeHTTP(w, r.WithContext(newCtx))
	})
}
