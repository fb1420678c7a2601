package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/libris-io/identity/auth"
	"github.com/libris-io/identity/users"
)

const (
	// refreshTokenCookieName is the cookie carrying the refresh token between
	// the browser and this service.
	refreshTokenCookieName = "refreshToken"

	contentTypeJSON = "application/json; charset=utf-8"
)

type loginRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  *users.User `json:"user"`
}

// Login authenticates a user and, on success, returns the access token in
// the body and the refresh token as an HTTP-only cookie.
func (s *Server) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		// An empty password is the trusted passwordless path inside the session
		// core; it is never reachable from the HTTP boundary.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserName == "" || req.Password == "" {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		result, err := s.session.SignIn(r.Context(), req.UserName, req.Password, true)
		if err != nil {
			log.Error().Err(err).Msg("sign-in failed")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		if !result.Succeeded() {
			writeUnauthorized(w, result.Status)
			return
		}
		s.writeSession(w, result)
	}
}

// Refresh exchanges the refresh token (body or cookie) for a new session.
func (s *Server) Refresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenID := s.refreshTokenFromRequest(r)
		if tokenID == "" {
			writeUnauthorized(w, auth.StatusNotAllowed)
			return
		}

		result, err := s.session.Refresh(r.Context(), tokenID)
		if err != nil {
			log.Error().Err(err).Msg("refresh failed")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		if !result.Succeeded() {
			writeUnauthorized(w, result.Status)
			return
		}
		s.writeSession(w, result)
	}
}

// Logout revokes the caller's refresh tokens and clears the cookie. It is
// idempotent and always answers 204, also for unknown tokens.
func (s *Server) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// The cookie header must be set before the status is written.
		s.clearTokenCookie(w)

		if tokenID := s.refreshTokenFromRequest(r); tokenID != "" {
			if err := s.session.LogoutByToken(r.Context(), tokenID); err != nil {
				log.Error().Err(err).Msg("logout by token failed")
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if userID := s.subjectFromBearer(r); userID != "" {
			if err := s.session.Logout(r.Context(), userID); err != nil {
				log.Error().Err(err).Msg("logout failed")
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) writeSession(w http.ResponseWriter, result *auth.Result) {
	s.setTokenCookie(w, result.RefreshTokenID, result.RefreshExpires)
	w.Header().Set("Content-Type", contentTypeJSON)
	_ = json.NewEncoder(w).Encode(sessionResponse{
		Token: result.AccessToken,
		User:  result.User,
	})
}

// refreshTokenFromRequest prefers an explicit body token over the cookie.
func (s *Server) refreshTokenFromRequest(r *http.Request) string {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	if cookie, err := r.Cookie(refreshTokenCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// subjectFromBearer parses the Authorization header and returns the subject
// claim of a valid access token, or "".
func (s *Server) subjectFromBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}

	claims, err := s.session.ParseAccessToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}

func (s *Server) setTokenCookie(w http.ResponseWriter, tokenID string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    tokenID,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func writeUnauthorized(w http.ResponseWriter, status auth.Status) {
	switch status {
	case auth.StatusLockedOut:
		http.Error(w, "Locked out", http.StatusUnauthorized)
	case auth.StatusTwoFactorRequired:
		http.Error(w, "Requires two factors", http.StatusUnauthorized)
	default:
		http.Error(w, "", http.StatusUnauthorized)
	}
}
