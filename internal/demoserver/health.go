package demoserver

import "net/http"

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) getHealth() http.HandlerFunc {
	payload := healthResponse{
		Status:  "OK",
		Version: s.version,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, payload)
	}
}
