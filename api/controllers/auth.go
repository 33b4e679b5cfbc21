package controllers

import (
	"net/http"

	"github.com/angelmondragon/mapas-backend/api/middleware"
	"github.com/angelmondragon/mapas-backend/api/responses"
	"github.com/angelmondragon/mapas-backend/api/validators"
	"github.com/angelmondragon/mapas-backend/internal/auth"
	"github.com/angelmondragon/mapas-backend/internal/auth/providers"
	pkgerrors "github.com/angelmondragon/mapas-backend/pkg/errors"
	"github.com/angelmondragon/mapas-backend/pkg/logger"
)

const tokenHeader = "X-Mapas-Token"

// AuthLogin wires the login endpoint into the HTTP layer.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.SubsiteID = middleware.SubsiteIDFromContext(r.Context())
		body.Locale = middleware.LocaleFromContext(r.Context())

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set(tokenHeader, result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}

// AuthRegister creates a local account and signs it in.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.SubsiteID = middleware.SubsiteIDFromContext(r.Context())

		if _, err := svc.Register(r.Context(), body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), auth.LoginRequest{
			Provider:  providers.Local,
			Email:     body.Email,
			Password:  body.Password,
			SubsiteID: body.SubsiteID,
			Locale:    middleware.LocaleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set(tokenHeader, result.AccessToken)
		responses.WriteCreated(w, result)
	}
}
