package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/codeloom/codeloom/internal/auth"
)

type userOut struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

type loginRequest struct {
	Email string `json:"email"`
}

type loginResponse struct {
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	User        userOut `json:"user"`
}

// displayName derives a display name from an email's local part.
func displayName(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

// handleLogin issues a bearer token for an email. No password check: this is
// the development identity provider; production swaps the Verifier.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		writeError(w, http.StatusBadRequest, "valid email is required")
		return
	}

	token, err := auth.IssueToken(s.authSecret, email, s.tokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "issue token")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        userOut{Email: email, DisplayName: displayName(email)},
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	email := identity(r)
	writeJSON(w, http.StatusOK, userOut{Email: email, DisplayName: displayName(email)})
}
