package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/ovaphlow/pitchfork/service-charging-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/httpx"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/token"
)

// Verifier checks a bearer token. *token.Service implements it.
type Verifier interface {
	Verify(tokenString string) (*token.Claims, error)
}

// Identity is the caller resolved from a verified token.
type Identity struct {
	UserID string
	Email  string
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFrom returns the identity attached by the middleware.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// Gateway authenticates requests from their Authorization header.
type Gateway struct {
	verifier Verifier
}

func NewGateway(v Verifier) *Gateway {
	return &Gateway{verifier: v}
}

// Authenticate resolves the identity behind an "Authorization: Bearer <token>"
// header value. A missing or malformed header is Unauthenticated and never
// reaches the verifier; a token that fails verification is Forbidden.
func (g *Gateway) Authenticate(rawHeader string) (Identity, error) {
	if strings.TrimSpace(rawHeader) == "" {
		return Identity{}, apperr.Unauthenticated("Authorization header missing")
	}
	scheme, tok, _ := strings.Cut(strings.TrimSpace(rawHeader), " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return Identity{}, apperr.Unauthenticated("Invalid authorization header format")
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return Identity{}, apperr.Unauthenticated("Token missing")
	}

	claims, err := g.verifier.Verify(tok)
	if err != nil {
		return Identity{}, apperr.Wrap(apperr.KindForbidden, "Invalid or expired token", err)
	}
	return Identity{UserID: claims.UserID(), Email: claims.Email}, nil
}

// Middleware rejects unauthenticated requests and attaches the Identity to
// the request context of authenticated ones.
func (g *Gateway) Middleware(resp *httpx.Responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := g.Authenticate(r.Header.Get("Authorization"))
			if err != nil {
				resp.Error(w, r, "auth.authenticate", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
