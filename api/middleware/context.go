package middleware

import (
	"context"

	"github.com/angelmondragon/mapas-backend/internal/access"
	"golang.org/x/text/language"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxAccessID contextKey = "access_id"
	ctxSubsite  contextKey = "subsite_id"
	ctxLocale   contextKey = "locale"
	ctxActor    contextKey = "actor"
)

// UserIDFromContext returns the authenticated user id, or zero.
func UserIDFromContext(ctx context.Context) int64 {
	if v, ok := ctx.Value(ctxUserID).(int64); ok {
		return v
	}
	return 0
}

// AccessIDFromContext returns the jti of the presented access token.
func AccessIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// SubsiteIDFromContext returns the subsite the request is served from; nil
// is the main site.
func SubsiteIDFromContext(ctx context.Context) *int64 {
	if v, ok := ctx.Value(ctxSubsite).(*int64); ok {
		return v
	}
	return nil
}

// LocaleFromContext returns the negotiated locale or language.Und.
func LocaleFromContext(ctx context.Context) language.Tag {
	if v, ok := ctx.Value(ctxLocale).(language.Tag); ok {
		return v
	}
	return language.Und
}

// ActorFromContext returns the loaded actor, falling back to an anonymous
// actor for the request subsite.
func ActorFromContext(ctx context.Context) access.Actor {
	if v, ok := ctx.Value(ctxActor).(access.Actor); ok {
		return v
	}
	return access.Anonymous(SubsiteIDFromContext(ctx))
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxUserID, userID)
}

func WithAccessID(ctx context.Context, accessID string) context.Context {
	return context.WithValue(ctx, ctxAccessID, accessID)
}

func WithSubsiteID(ctx context.Context, subsiteID *int64) context.Context {
	return context.WithValue(ctx, ctxSubsite, subsiteID)
}

func WithLocale(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, ctxLocale, tag)
}

func WithActor(ctx context.Context, actor access.Actor) context.Context {
	return context.WithValue(ctx, ctxActor, actor)
}
