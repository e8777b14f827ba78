package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/OrlandoBitencourt/flagsnap/internal/domain"
)

type contextKey string

const contextKeyUser contextKey = "flagsnap_user"

// Request headers read by UserContext.
const (
	HeaderUserID      = "X-User-ID"
	HeaderUserEmail   = "X-User-Email"
	HeaderUserCountry = "X-User-Country"

	// HeaderCustomPrefix marks custom attributes, e.g. X-User-Attr-Plan: pro.
	HeaderCustomPrefix = "X-User-Attr-"
)

// UserContext builds a domain.User from request headers and query parameters
// and stores it in the request context. Query parameters win over headers.
// Requests without an identifier carry no user.
func UserContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := userFromRequest(r); user != nil {
			r = r.WithContext(WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

func userFromRequest(r *http.Request) *domain.User {
	user := &domain.User{
		Identifier: r.Header.Get(HeaderUserID),
		Email:      r.Header.Get(HeaderUserEmail),
		Country:    r.Header.Get(HeaderUserCountry),
	}

	// Extract user ID from cookie as a last resort
	if user.Identifier == "" {
		if cookie, err := r.Cookie("user_id"); err == nil {
			user.Identifier = cookie.Value
		}
	}

	for name, values := range r.Header {
		if len(values) == 0 || !strings.HasPrefix(name, HeaderCustomPrefix) {
			continue
		}
		setCustom(user, strings.TrimPrefix(name, HeaderCustomPrefix), values[0])
	}

	for name, values := range r.URL.Query() {
		if len(values) == 0 {
			continue
		}
		switch strings.ToLower(name) {
		case "identifier":
			user.Identifier = values[0]
		case "email":
			user.Email = values[0]
		case "country":
			user.Country = values[0]
		default:
			setCustom(user, name, values[0])
		}
	}

	if user.Identifier == "" {
		return nil
	}
	return user
}

func setCustom(user *domain.User, name, value string) {
	if user.Custom == nil {
		user.Custom = make(map[string]string)
	}
	user.Custom[name] = value
}

// WithUser returns a context carrying user.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, contextKeyUser, user)
}

// UserFromContext extracts the user stored by UserContext or WithUser.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(contextKeyUser).(*domain.User)
	return user, ok && user != nil
}
