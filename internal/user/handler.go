package user

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-charging-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/httpx"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/user/entity"
)

// Credentials is the operation set the handler needs from UserService.
type Credentials interface {
	Register(ctx context.Context, email, password string) (*entity.User, error)
	Verify(ctx context.Context, email, password string) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.PublicView, error)
}

// Issuer signs session tokens. *token.Service implements it.
type Issuer interface {
	Issue(userID, email string) (string, time.Time, error)
}

// Handler exposes HTTP endpoints for user operations (register / login / me).
type Handler struct {
	svc    Credentials
	tokens Issuer
	resp   *httpx.Responder
	logger *zap.SugaredLogger
}

func NewHandler(svc Credentials, tokens Issuer, resp *httpx.Responder, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, tokens: tokens, resp: resp, logger: logger}
}

// CredentialsRequest is the body of both register and login.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse response body containing the new user.
type RegisterResponse struct {
	Message string            `json:"message"`
	User    entity.PublicView `json:"user"`
}

// LoginResponse carries the bearer token and the authenticated user.
type LoginResponse struct {
	Token string            `json:"token"`
	User  entity.PublicView `json:"user"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		h.resp.Error(w, r, "user.register", err)
		return
	}
	u, err := h.svc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.resp.Error(w, r, "user.register", err, "email", NormalizeEmail(req.Email))
		return
	}
	h.logger.Infow("user registered", "user_id", u.ID)
	h.resp.JSON(w, http.StatusCreated, RegisterResponse{Message: "User registered successfully", User: u.Public()})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		h.resp.Error(w, r, "user.login", err)
		return
	}
	u, err := h.svc.Verify(r.Context(), req.Email, req.Password)
	if err != nil {
		h.resp.Error(w, r, "user.login", err, "email", NormalizeEmail(req.Email))
		return
	}
	tok, _, err := h.tokens.Issue(u.ID, u.Email)
	if err != nil {
		h.resp.Error(w, r, "user.login", apperr.Internal(err), "user_id", u.ID)
		return
	}
	h.resp.JSON(w, http.StatusOK, LoginResponse{Token: tok, User: u.Public()})
}

// Me returns the account behind the bearer token.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.resp.Error(w, r, "user.me", apperr.Unauthenticated("Authorization header missing"))
		return
	}
	view, err := h.svc.GetByID(r.Context(), id.UserID)
	if err != nil {
		h.resp.Error(w, r, "user.me", err, "user_id", id.UserID)
		return
	}
	h.resp.JSON(w, http.StatusOK, view)
}
