package httpserver

import (
	"net/http"
	"net/netip"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/and161185/slushbook/internal/convert"
	"github.com/and161185/slushbook/internal/errs"
	"github.com/and161185/slushbook/internal/geo"
	"github.com/and161185/slushbook/internal/metrics"
	"github.com/and161185/slushbook/internal/model"
	"github.com/and161185/slushbook/internal/service"
)

// DeviceHeader carries the client's device identifier; it keys the guest quota.
const DeviceHeader = "X-Device-ID"

// Logging returns an access log middleware. It records metadata only.
func Logging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			dur := time.Since(start)
			metrics.ObserveHTTP(r.Method, route, status, dur)

			log.Info("http",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Duration("dur", dur),
				zap.String("remote", r.RemoteAddr),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// Recover returns a middleware that turns panics into 500 responses.
func Recover(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic",
						zap.Any("reason", rec),
						zap.ByteString("stack", debug.Stack()),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
					)
					writeJSON(w, http.StatusInternalServerError, ErrorBody{Error: "internal"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false, nil
	}
	const prefix = "bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", true, errs.ErrNotAuthenticated
	}
	tok := strings.TrimSpace(h[len(prefix):])
	if tok == "" {
		return "", true, errs.ErrNotAuthenticated
	}
	return tok, true, nil
}

// Authenticate resolves the caller. Requests without credentials proceed as anonymous;
// a presented but invalid or expired token is rejected.
func Authenticate(auth service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			device := strings.TrimSpace(r.Header.Get(DeviceHeader))
			tok, present, err := bearerToken(r)
			if err != nil {
				writeError(w, err)
				return
			}
			c := model.Anonymous(device)
			if present {
				u, _, err := auth.Authenticate(r.Context(), tok)
				if err != nil {
					writeError(w, err)
					return
				}
				c = model.CallerFor(u, device)
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), c)))
		})
	}
}

// RequireAuth rejects anonymous callers.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !CallerFromCtx(r.Context()).Authenticated() {
			writeError(w, errs.ErrNotAuthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Localize resolves the request locale. The language comes from the language query,
// then Accept-Language, then the country; the country from the country query, then
// the user's profile, then geolocation of the client address.
func Localize(loc geo.Locator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := geo.WithMemo(r.Context())
			c := CallerFromCtx(ctx)
			q := r.URL.Query()

			country := strings.ToUpper(strings.TrimSpace(q.Get("country")))
			if len(country) != 2 {
				country = c.Country
			}
			if country == "" {
				country = loc.Country(ctx, clientIP(r))
			}

			lang, ok := model.ParseLang(q.Get("language"))
			if !ok {
				lang, ok = acceptLanguage(r.Header.Get("Accept-Language"))
			}
			if !ok {
				lang = model.LangForCountry(country)
			}
			ctx = WithLocale(ctx, convert.NewLocale(country, lang))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// acceptLanguage maps the first Accept-Language tag to a supported language.
func acceptLanguage(h string) (model.Lang, bool) {
	first, _, _ := strings.Cut(h, ",")
	tag, _, _ := strings.Cut(first, ";")
	tag = strings.TrimSpace(tag)
	if tag == "" || tag == "*" {
		return "", false
	}
	return model.ParseLang(tag)
}

// clientIP strips the port from RemoteAddr. middleware.RealIP may already have
// replaced it with a bare address.
func clientIP(r *http.Request) string {
	if ap, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return ap.Addr().String()
	}
	return r.RemoteAddr
}
