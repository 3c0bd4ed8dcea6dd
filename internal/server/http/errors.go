package httpserver

import (
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/go-playground/validator/v10"

	"github.com/and161185/slushbook/internal/errs"
)

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

// maxBody bounds request bodies; import documents are the largest.
const maxBody = 16 << 20

var errorKinds = []struct {
	err    error
	kind   string
	status int
}{
	{errs.ErrNotAuthenticated, "not_authenticated", http.StatusUnauthorized},
	{errs.ErrInvalidTransition, "invalid_transition", http.StatusConflict},
	{errs.ErrForbidden, "forbidden", http.StatusForbidden},
	{errs.ErrQuotaExceeded, "quota_exceeded", http.StatusTooManyRequests},
	{errs.ErrVersionConflict, "version_conflict", http.StatusConflict},
	{errs.ErrAlreadyExists, "already_exists", http.StatusConflict},
	{errs.ErrUnknownUnit, "unknown_unit", http.StatusBadRequest},
	{errs.ErrUnitTypeMismatch, "unit_type_mismatch", http.StatusBadRequest},
	{errs.ErrMissingTranslation, "missing_translation", http.StatusNotFound},
	{errs.ErrNotFound, "not_found", http.StatusNotFound},
	{errs.ErrUpstreamUnavailable, "upstream_unavailable", http.StatusServiceUnavailable},
	{errs.ErrValidation, "validation", http.StatusUnprocessableEntity},
}

// statusFor maps err to an HTTP status and an error kind. Unit errors are checked
// before validation since a ValidationError may wrap them; a failed moderation
// guard wraps both ErrInvalidTransition and ErrForbidden and renders as a conflict.
func statusFor(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.kind
		}
	}
	return http.StatusInternalServerError, "internal"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err. Internal errors never leak their message.
func writeError(w http.ResponseWriter, err error) {
	status, kind := statusFor(err)
	body := ErrorBody{Error: kind}
	if status != http.StatusInternalServerError {
		body.Message = err.Error()
	}
	var ve *errs.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}
	writeJSON(w, status, body)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// decode reads a JSON body into dst and validates it. Failures are validation errors
// carrying the offending field path.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errs.Invalid("", "empty body")
		}
		return errs.Invalid("", "malformed json: "+err.Error())
	}
	return check(dst)
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fe validator.ValidationErrors
	if errors.As(err, &fe) && len(fe) > 0 {
		f := fe[0]
		field := f.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		reason := f.Tag()
		if f.Param() != "" {
			reason += "=" + f.Param()
		}
		return errs.Invalid(field, reason)
	}
	return errs.Invalid("", err.Error())
}
