package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/mapas-backend/internal/subsites"
	"github.com/angelmondragon/mapas-backend/pkg/i18n"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	id   *int64
	err  error
	host string
}

func (s *stubResolver) Resolve(ctx context.Context, host string) (*int64, error) {
	s.host = host
	return s.id, s.err
}

func TestSubsiteStoresResolvedID(t *testing.T) {
	id := int64(3)
	resolver := &stubResolver{id: &id}

	var got *int64
	handler := Subsite(resolver, true, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SubsiteIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "internal:8080"
	req.Header.Set("X-Forwarded-Host", "cultura.example.org")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "cultura.example.org", resolver.host)
	require.NotNil(t, got)
	require.Equal(t, int64(3), *got)
}

func TestSubsiteIgnoresForwardedHostWithoutTrustedProxy(t *testing.T) {
	id := int64(3)
	resolver := &stubResolver{id: &id}
	handler := Subsite(resolver, false, nil)(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "mapa.example.org"
	req.Header.Set("X-Forwarded-Host", "outro.example.org")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "mapa.example.org", resolver.host)
}

func TestSubsiteCacheFailureContinues(t *testing.T) {
	id := int64(3)
	resolver := &stubResolver{id: &id, err: fmt.Errorf("read: %w", subsites.ErrCache)}

	var got *int64
	handler := Subsite(resolver, false, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SubsiteIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
}

func TestSubsiteLookupFailure(t *testing.T) {
	handler := Subsite(&stubResolver{err: errors.New("db down")}, false, nil)(http.HandlerFunc(okHandler))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLocaleNegotiation(t *testing.T) {
	cases := map[string]struct {
		target string
		header string
		want   string
	}{
		"fallback":        {target: "/", want: i18n.PortugueseBR.String()},
		"accept language": {target: "/", header: "en-GB,en;q=0.8", want: i18n.EnglishUS.String()},
		"query override":  {target: "/?lang=pt_BR", header: "en-US", want: i18n.PortugueseBR.String()},
		"bad query":       {target: "/?lang=zz-ZZ", header: "en-US", want: i18n.EnglishUS.String()},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var got string
			handler := Locale(i18n.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = LocaleFromContext(r.Context()).String()
			}))
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Accept-Language", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			require.Equal(t, tc.want, got)
			require.Equal(t, tc.want, rec.Header().Get("Content-Language"))
		})
	}
}

func TestRequestIDKeepsValidHeader(t *testing.T) {
	handler := RequestID(nil)(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "bad value\n"+strings.Repeat("x", maxRequestIDLen))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	minted := rec.Header().Get(requestIDHeader)
	require.NotEmpty(t, minted)
	require.NotContains(t, minted, " ")
	require.LessOrEqual(t, len(minted), maxRequestIDLen)
}

func TestRecovererWritesInternalError(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "boom")
}

func TestRecovererRepanicsAbort(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	require.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRoutePattern(t *testing.T) {
	var pattern string
	router := chi.NewRouter()
	router.Get("/users/{userId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		pattern = routePattern(r)
	})

	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/9", nil))
	require.Equal(t, "/users/{userId}", pattern)
	require.Equal(t, http.StatusTeapot, rec.status)

	require.Equal(t, "unmatched", routePattern(httptest.NewRequest(http.MethodGet, "/", nil)))
}
