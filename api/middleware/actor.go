package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/mapas-backend/api/responses"
	"github.com/angelmondragon/mapas-backend/internal/access"
	"github.com/angelmondragon/mapas-backend/pkg/db"
	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"github.com/angelmondragon/mapas-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mapas-backend/pkg/errors"
	"github.com/angelmondragon/mapas-backend/pkg/logger"
)

type actorLoader interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// Actor loads the authenticated user with its roles and stores the acting
// actor for the request subsite. Requests without a user id become anonymous
// actors.
func Actor(loader actorLoader, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			subsiteID := SubsiteIDFromContext(ctx)

			userID := UserIDFromContext(ctx)
			if userID == 0 {
				next.ServeHTTP(w, r.WithContext(WithActor(ctx, access.Anonymous(subsiteID))))
				return
			}

			user, err := loader.FindByID(ctx, userID)
			if err != nil {
				if db.IsNotFound(err) {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user no longer exists"))
					return
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load actor"))
				return
			}
			if user.Status != enums.StatusEnabled {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user is not active"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(ctx, access.ForUser(user, subsiteID))))
		})
	}
}

// RequireUser rejects anonymous actors.
func RequireUser(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ActorFromContext(r.Context()).IsAnonymous() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
