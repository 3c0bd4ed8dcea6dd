package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/and161185/slushbook/internal/convert"
	"github.com/and161185/slushbook/internal/errs"
	"github.com/and161185/slushbook/internal/model"
)

func TestLogging_RoutePatternAndStatus(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	r := chi.NewRouter()
	r.Use(Logging(zap.New(core)))
	r.Get("/things/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/42?secret=x", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "/things/{id}", fields["route"])
	require.EqualValues(t, http.StatusTeapot, fields["status"])
	require.Equal(t, "192.0.2.1:1234", fields["remote"])
	for k, v := range fields {
		require.NotContains(t, fmt.Sprint(v), "secret", "field %s leaks the query", k)
	}
}

func TestRecover_CatchesPanic(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.ErrorLevel)
	h := Recover(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("oh no")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"internal"}`, rec.Body.String())
	require.Equal(t, 1, logs.FilterMessage("panic").Len())
}

func TestRecover_NoPanicPassThrough(t *testing.T) {
	t.Parallel()

	h := Recover(zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestAuthenticate_Caller(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{byToken: map[string]*model.User{
		"good": {ID: "u1", Role: model.RoleEditor, Country: "DE"},
	}}
	var got model.Caller
	h := Authenticate(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = CallerFromCtx(r.Context())
	}))

	cases := []struct {
		name   string
		header string
		status int
		want   model.Caller
	}{
		{name: "anonymous", status: http.StatusOK, want: model.Caller{Role: model.RoleGuest, DeviceID: "d1"}},
		{name: "valid", header: "Bearer good", status: http.StatusOK, want: model.Caller{UserID: "u1", Role: model.RoleEditor, Country: "DE", DeviceID: "d1"}},
		{name: "case insensitive scheme", header: "bearer   good", status: http.StatusOK, want: model.Caller{UserID: "u1", Role: model.RoleEditor, Country: "DE", DeviceID: "d1"}},
		{name: "unknown token", header: "Bearer bad", status: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic Zm9vOmJhcg==", status: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer   ", status: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		got = model.Caller{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(DeviceHeader, " d1 ")
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, tc.status, rec.Code, tc.name)
		if tc.status == http.StatusOK {
			require.Equal(t, tc.want, got, tc.name)
		}
	}
}

func TestLocalize_Precedence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		query     string
		accept    string
		caller    model.Caller
		wantLang  model.Lang
		wantCC    string
		wantLooks int
	}{
		{name: "geolocated", wantLang: model.LangFR, wantCC: "FR", wantLooks: 1},
		{name: "user country", caller: model.Caller{UserID: "u", Country: "DE"}, wantLang: model.LangDE, wantCC: "DE"},
		{name: "accept language", accept: "en-US,en;q=0.8", caller: model.Caller{UserID: "u", Country: "DK"}, wantLang: model.LangENUS, wantCC: "DK"},
		{name: "unsupported accept language", accept: "ja-JP", caller: model.Caller{UserID: "u", Country: "DK"}, wantLang: model.LangDA, wantCC: "DK"},
		{name: "explicit language", query: "language=de", accept: "fr", caller: model.Caller{UserID: "u", Country: "DK"}, wantLang: model.LangDE, wantCC: "DK"},
		{name: "explicit country", query: "country=us", wantLang: model.LangENUS, wantCC: "US"},
	}
	for _, tc := range cases {
		loc := &fakeLocator{country: "FR"}
		var got convert.Locale
		h := Localize(loc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = LocaleFromCtx(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)
		if tc.accept != "" {
			req.Header.Set("Accept-Language", tc.accept)
		}
		req = req.WithContext(WithCaller(req.Context(), tc.caller))
		h.ServeHTTP(httptest.NewRecorder(), req)

		require.Equal(t, tc.wantLang, got.Language, tc.name)
		require.Equal(t, tc.wantCC, got.Country, tc.name)
		require.Equal(t, tc.wantLooks, loc.calls, tc.name)
		require.NotEmpty(t, got.Unit, tc.name)
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Equal(t, "192.0.2.1", clientIP(req))
	req.RemoteAddr = "[2001:db8::1]:443"
	require.Equal(t, "2001:db8::1", clientIP(req))
	req.RemoteAddr = "203.0.113.9"
	require.Equal(t, "203.0.113.9", clientIP(req))
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{errs.ErrNotAuthenticated, http.StatusUnauthorized, "not_authenticated"},
		{fmt.Errorf("%w: pro may not delete", errs.ErrForbidden), http.StatusForbidden, "forbidden"},
		{errs.ErrQuotaExceeded, http.StatusTooManyRequests, "quota_exceeded"},
		{errs.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
		{fmt.Errorf("%w: %w: author guard", errs.ErrInvalidTransition, errs.ErrForbidden), http.StatusConflict, "invalid_transition"},
		{errs.ErrVersionConflict, http.StatusConflict, "version_conflict"},
		{errs.ErrAlreadyExists, http.StatusConflict, "already_exists"},
		{errs.InvalidCause("ingredients[0].display_unit", errs.ErrUnknownUnit), http.StatusBadRequest, "unknown_unit"},
		{errs.ErrUnitTypeMismatch, http.StatusBadRequest, "unit_type_mismatch"},
		{errs.ErrMissingTranslation, http.StatusNotFound, "missing_translation"},
		{errs.ErrNotFound, http.StatusNotFound, "not_found"},
		{errs.ErrUpstreamUnavailable, http.StatusServiceUnavailable, "upstream_unavailable"},
		{errs.Invalid("name", "required"), http.StatusUnprocessableEntity, "validation"},
		{errors.New("db down"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		status, kind := statusFor(tc.err)
		require.Equal(t, tc.status, status, tc.err.Error())
		require.Equal(t, tc.kind, kind, tc.err.Error())
	}
}

func TestWriteError_HidesInternal(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeError(rec, errors.New("pq: password authentication failed"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"internal"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	writeError(rec, fmt.Errorf("create: %w", errs.Invalid("ver", "must be >= 1")))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	eb := decodeBody[ErrorBody](t, rec)
	require.Equal(t, "ver", eb.Field)
	require.Contains(t, eb.Message, "must be >= 1")
}

func TestCtxDefaults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	require.False(t, CallerFromCtx(ctx).Authenticated())
	require.Equal(t, model.LangDA, LocaleFromCtx(ctx).Language)

	c := model.Caller{UserID: "u", Role: model.RolePro}
	require.Equal(t, c, CallerFromCtx(WithCaller(ctx, c)))
}
