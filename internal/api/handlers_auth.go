package api

import (
	"errors"
	"net/http"
	"strings"

	"finance-sim/internal/auth"
	"finance-sim/internal/model"
)

type sessionResponse struct {
	User    model.User `json:"user"`
	CashUSD string     `json:"cash_usd"`
	Token   string     `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	confirmation := r.FormValue("confirmation")

	switch {
	case username == "":
		writeError(w, http.StatusForbidden, string(model.KindMissingInput), "must provide username")
		return
	case password == "" || confirmation == "":
		writeError(w, http.StatusForbidden, string(model.KindMissingInput), "must provide password and confirmation")
		return
	case password != confirmation:
		writeError(w, http.StatusBadRequest, "password_mismatch", "passwords do not match")
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	u, err := s.users.Create(r.Context(), username, hash, s.startingCash)
	if errors.Is(err, model.ErrUserExists) {
		writeError(w, http.StatusBadRequest, "username_taken", "username already exists")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.startSession(w, r, http.StatusCreated, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		writeError(w, http.StatusForbidden, string(model.KindMissingInput), "must provide username and password")
		return
	}

	u, err := s.users.ByUsername(r.Context(), username)
	if err != nil && !errors.Is(err, model.ErrUserNotFound) {
		s.fail(w, r, err)
		return
	}
	if err != nil || !auth.CheckPassword(u.Hash, password) {
		writeError(w, http.StatusForbidden, "invalid_credentials", "invalid username and/or password")
		return
	}
	if u.TOTPEnabled && !auth.ValidateTOTP(r.FormValue("otp"), u.TOTPSecret) {
		writeError(w, http.StatusForbidden, "otp_required", "a valid one-time code is required")
		return
	}

	s.startSession(w, r, http.StatusOK, u)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.gate.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, status int, u model.User) {
	token, exp, err := s.gate.Issue(u.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.gate.SetCookie(w, r, token, exp)
	writeJSON(w, status, sessionResponse{User: u, CashUSD: model.USD(u.Cash), Token: token})
}

func (s *Server) handleTOTPStart(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserFrom(r.Context())
	u, err := s.users.ByID(r.Context(), uid)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// Replacing an active factor needs a code from it.
	if u.TOTPEnabled && !auth.ValidateTOTP(r.FormValue("code"), u.TOTPSecret) {
		writeError(w, http.StatusForbidden, "invalid_otp", "a valid code from the current authenticator is required")
		return
	}
	key, err := auth.NewTOTP(u.Username)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// Not enforced until confirmed with a valid code.
	if err := s.users.SetTOTP(r.Context(), uid, key.Secret, false); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, key)
}

func (s *Server) handleTOTPConfirm(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserFrom(r.Context())
	u, err := s.users.ByID(r.Context(), uid)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if u.TOTPSecret == "" {
		writeError(w, http.StatusBadRequest, "totp_not_started", "start enrolment first")
		return
	}
	if !auth.ValidateTOTP(r.FormValue("code"), u.TOTPSecret) {
		writeError(w, http.StatusForbidden, "invalid_otp", "invalid one-time code")
		return
	}
	if err := s.users.SetTOTP(r.Context(), uid, u.TOTPSecret, true); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"totp_enabled": true})
}
