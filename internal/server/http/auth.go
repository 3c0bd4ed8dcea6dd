package httpserver

import (
	"net/http"
	"time"

	"github.com/and161185/slushbook/internal/model"
	"github.com/and161185/slushbook/internal/service"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Name     string `json:"name" validate:"max=100"`
	Password string `json:"password" validate:"required,max=256"`
	Country  string `json:"country" validate:"omitempty,len=2,alpha"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userView struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      model.Role `json:"role"`
	Country   string     `json:"country,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func toUserView(u *model.User) userView {
	return userView{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role, Country: u.Country, CreatedAt: u.CreatedAt}
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        userView  `json:"user"`
}

type meResponse struct {
	userView
	// RemainingCreates is -1 when the caller has no create limit.
	RemainingCreates int `json:"remaining_creates"`
}

// register creates a guest account.
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	u, err := s.svc.Auth.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Country:  req.Country,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserView(u))
}

// login issues an access token; its expiry is the session expiry.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	tok, u, err := s.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: tok.AccessToken,
		ExpiresAt:   tok.ExpiresAt,
		User:        toUserView(&u),
	})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	c := CallerFromCtx(r.Context())
	u, err := s.svc.Users.Get(r.Context(), c.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	left, err := s.svc.Users.Remaining(r.Context(), c)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{userView: toUserView(u), RemainingCreates: left})
}
