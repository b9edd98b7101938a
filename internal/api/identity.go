package api

import (
	"context"
	"net/http"
	"strings"

	"crm-assistant/internal/models"
)

type contextKey string

const ctxIdentity contextKey = "identity"

// IdentityHeaders names the headers the authentication proxy sets.
type IdentityHeaders struct {
	Subject   string
	Email     string
	FirstName string
	LastName  string
}

func DefaultIdentityHeaders(subject string) IdentityHeaders {
	if subject == "" {
		subject = "X-User-Id"
	}
	return IdentityHeaders{
		Subject:   subject,
		Email:     "X-User-Email",
		FirstName: "X-User-First-Name",
		LastName:  "X-User-Last-Name",
	}
}

// IdentityMiddleware places the caller's identity in the request context
// when the subject header is present. It never rejects a request; handlers
// that need a caller answer 401 themselves.
func IdentityMiddleware(h IdentityHeaders) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := strings.TrimSpace(r.Header.Get(h.Subject))
			if subject == "" {
				next.ServeHTTP(w, r)
				return
			}
			id := models.Identity{
				Subject:   subject,
				Email:     strings.TrimSpace(r.Header.Get(h.Email)),
				FirstName: strings.TrimSpace(r.Header.Get(h.FirstName)),
				LastName:  strings.TrimSpace(r.Header.Get(h.LastName)),
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

// IdentityFromContext extracts the caller placed by IdentityMiddleware.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(ctxIdentity).(models.Identity)
	return id, ok && id.Subject != ""
}
