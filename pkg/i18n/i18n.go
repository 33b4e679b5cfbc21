// Package i18n holds the translated user-facing strings and resolves the
// request locale.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	PortugueseBR = language.MustParse("pt-BR")
	EnglishUS    = language.MustParse("en-US")
)

var supported = []language.Tag{PortugueseBR, EnglishUS}

var matcher = language.NewMatcher(supported)

// Message keys.
const (
	KeyUserSingular = "entity.user.singular"
	KeyUserPlural   = "entity.user.plural"

	KeyLastAccess         = "notification.last_access"
	KeyAgentStale         = "notification.agent.stale"
	KeySpaceStale         = "notification.space.stale"
	KeyAgentSealExpired   = "notification.agent.seal_expired"
	KeyAgentSealToExpire  = "notification.agent.seal_to_expire"
	KeySpaceSealExpired   = "notification.space.seal_expired"
	KeySpaceSealToExpire  = "notification.space.seal_to_expire"
	KeyNotificationsTitle = "notification.title"
)

// Supported returns the locales with a catalog.
func Supported() []language.Tag {
	return append([]language.Tag(nil), supported...)
}

// Default is the locale used when nothing better matches.
func Default() language.Tag {
	return PortugueseBR
}

// Match picks the closest supported locale for the provided tags.
func Match(tags ...language.Tag) language.Tag {
	if len(tags) == 0 {
		return Default()
	}
	_, idx, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return Default()
	}
	return supported[idx]
}

// Parse resolves a single locale string such as "en" or "pt_BR".
func Parse(value string) (language.Tag, bool) {
	value = strings.ReplaceAll(strings.TrimSpace(value), "_", "-")
	if value == "" {
		return Default(), false
	}
	tag, err := language.Parse(value)
	if err != nil {
		return Default(), false
	}
	_, idx, confidence := matcher.Match(tag)
	if confidence == language.No {
		return Default(), false
	}
	return supported[idx], true
}

// FromAcceptLanguage resolves an Accept-Language header, falling back to
// fallback when the header is empty or unparsable.
func FromAcceptLanguage(header string, fallback language.Tag) language.Tag {
	header = strings.TrimSpace(header)
	if header == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return fallback
	}
	return supported[idx]
}

// Printer returns a message printer for tag.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// Sprintf formats the message stored under key for tag.
func Sprintf(tag language.Tag, key string, args ...any) string {
	return Printer(tag).Sprintf(key, args...)
}
