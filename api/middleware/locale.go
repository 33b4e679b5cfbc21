package middleware

import (
	"net/http"

	"github.com/angelmondragon/mapas-backend/pkg/i18n"
	"golang.org/x/text/language"
)

// Locale negotiates the response language from ?lang= or Accept-Language.
func Locale(fallback language.Tag) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag := i18n.FromAcceptLanguage(r.Header.Get("Accept-Language"), fallback)
			if raw := r.URL.Query().Get("lang"); raw != "" {
				if parsed, ok := i18n.Parse(raw); ok {
					tag = parsed
				}
			}
			w.Header().Set("Content-Language", tag.String())
			next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), tag)))
		})
	}
}
