package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/angelmondragon/mapas-backend/api/responses"
	"github.com/angelmondragon/mapas-backend/internal/subsites"
	pkgerrors "github.com/angelmondragon/mapas-backend/pkg/errors"
	"github.com/angelmondragon/mapas-backend/pkg/logger"
)

type subsiteResolver interface {
	Resolve(ctx context.Context, host string) (*int64, error)
}

// Subsite resolves the request host to the subsite it serves.
// X-Forwarded-Host is only honoured when trustProxy is set, since any client
// can send it.
func Subsite(resolver subsiteResolver, trustProxy bool, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if resolver == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := r.Host
			if forwarded := r.Header.Get("X-Forwarded-Host"); trustProxy && forwarded != "" {
				host = forwarded
			}
			id, err := resolver.Resolve(r.Context(), host)
			if err != nil {
				if !errors.Is(err, subsites.ErrCache) {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve subsite"))
					return
				}
				if logg != nil {
					logg.Warn(logg.WithField(r.Context(), "host", host), err.Error())
				}
			}
			ctx := WithSubsiteID(r.Context(), id)
			if logg != nil {
				ctx = logg.WithSubsiteID(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
