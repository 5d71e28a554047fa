package api

import (
	"context"
	"net/http"

	"svmedia/internal/domain"
	"svmedia/internal/domain/model"
	"svmedia/internal/infra/logging"
	"svmedia/internal/infra/security"
)

type ctxKey int

const principalKey ctxKey = iota

func withPrincipal(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, principalKey, u)
}

// Principal returns the authenticated user attached by requireUser.
func Principal(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(principalKey).(*model.User)
	return u, ok && !u.IsZero()
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := security.BearerToken(r)
		if !ok {
			writeError(w, r, s.log, domain.ErrUnauthorized)
			return
		}
		u, err := s.auth.Principal(r.Context(), tok)
		if err != nil {
			writeError(w, r, s.log, err)
			return
		}
		ctx := logging.WithUserID(withPrincipal(r.Context(), u), u.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := Principal(r.Context())
		if !ok || !u.IsAdmin {
			status := statusFor(domain.ErrForbidden)
			writeJSON(w, status, errorBody{Error: http.StatusText(status), Detail: domain.ErrForbidden.Error()})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// throttle counts attempts per client address. A limiter outage lets the
// request through.
func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		ok, err := s.limiter.Allow(r.Context(), s.keyFn(clientIP(r)))
		if err != nil {
			l := logging.With(r.Context(), s.log)
			l.Warn().Err(err).Msg("rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			w.Header().Set("Retry-After", "60")
			writeError(w, r, s.log, domain.ErrRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}
