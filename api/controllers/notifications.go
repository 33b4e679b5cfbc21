package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/mapas-backend/api/middleware"
	"github.com/angelmondragon/mapas-backend/api/responses"
	"github.com/angelmondragon/mapas-backend/api/validators"
	"github.com/angelmondragon/mapas-backend/internal/notifications"
	"github.com/angelmondragon/mapas-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mapas-backend/pkg/errors"
	"github.com/angelmondragon/mapas-backend/pkg/logger"
)

const maxNotificationsPage = 100

type notificationGenerator interface {
	Generate(ctx context.Context, req notifications.Request) (notifications.Result, error)
}

// ListNotifications returns the acting user's notifications, newest first.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		params := notifications.ListParams{UserID: actor.ID()}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, maxNotificationsPage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Limit = limit
		params.Cursor = strings.TrimSpace(r.URL.Query().Get("cursor"))

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := parseNotificationStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			params.Status = &status
		}

		resp, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func parseNotificationStatus(raw string) (enums.NotificationStatus, error) {
	switch strings.ToLower(raw) {
	case "unread":
		return enums.NotificationStatusUnread, nil
	case "read":
		return enums.NotificationStatusRead, nil
	}
	value, err := strconv.ParseInt(raw, 10, 16)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification status").WithDetails(map[string]any{"field": "status"})
	}
	return enums.NotificationStatus(value), nil
}

// MarkNotificationRead flags a single notification as read.
func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		id, err := validators.ParsePathID(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		if err := svc.MarkRead(r.Context(), actor.ID(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"read": true})
	}
}

// MarkAllNotificationsRead flags every unread notification of the actor.
func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		count, err := svc.MarkAllRead(r.Context(), actor.ID())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": count})
	}
}

// GenerateNotifications runs every reminder check for the acting user in the
// negotiated locale.
func GenerateNotifications(gen notificationGenerator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gen == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notification generator unavailable"))
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		result, err := gen.Generate(r.Context(), notifications.Request{
			User:   actor.User,
			Parts:  notifications.AllParts,
			Locale: middleware.LocaleFromContext(r.Context()),
		})
		if err != nil {
			if result.Created == 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate notifications"))
				return
			}
			if logg != nil {
				logg.Warn(logg.WithField(r.Context(), "created", result.Created), "partial notification generation: "+err.Error())
			}
		}
		responses.WriteSuccess(w, result)
	}
}
