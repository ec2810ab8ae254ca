package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/zayana/storefront/pkg/errors"
	"github.com/zayana/storefront/pkg/httputil"
	"github.com/zayana/storefront/pkg/i18n"
	"github.com/zayana/storefront/pkg/logger"
	"github.com/zayana/storefront/pkg/middleware"
	"github.com/zayana/storefront/pkg/validator"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

func locale(r *http.Request) i18n.Locale {
	return i18n.FromAcceptLanguage(r.Header.Get("Accept-Language"))
}

// writeLocalized writes an error envelope whose message is the translation
// of key in the request's locale.
func writeLocalized(w http.ResponseWriter, r *http.Request, status int, code string, key i18n.Key) {
	loc := locale(r)
	w.Header().Set("Content-Language", string(loc))
	httputil.WriteJSON(w, status, httputil.Response{
		Error: &httputil.ErrorResponse{
			Code:      code,
			Message:   i18n.T(loc, key),
			RequestID: logger.CorrelationIDFromContext(r.Context()),
		},
	})
}

// fieldKeys translates the required-field failures of the checkout form.
var fieldKeys = map[string]i18n.Key{
	"name":    i18n.KeyNameRequired,
	"phone":   i18n.KeyPhoneRequired,
	"address": i18n.KeyAddressRequired,
}

// writeFormError renders a validation failure with per-field messages in the
// request's locale. Fields without a translation keep the validator text.
func writeFormError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validator.ValidationError
	if !errors.As(err, &verr) {
		httputil.WriteValidationError(w, err, "")
		return
	}
	loc := locale(r)
	fields := verr.Fields()
	for name := range fields {
		if key, ok := fieldKeys[name]; ok {
			fields[name] = i18n.T(loc, key)
		}
	}
	w.Header().Set("Content-Language", string(loc))
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
		Error: &httputil.ErrorResponse{
			Code:      "VALIDATION_ERROR",
			Message:   i18n.T(loc, i18n.KeyFormInvalid),
			Fields:    fields,
			RequestID: logger.CorrelationIDFromContext(r.Context()),
		},
	})
}

// sessionID writes a 400 and returns false when the request carries no
// usable cart session.
func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	sid := middleware.SessionIDFromRequest(r)
	if sid == "" {
		writeLocalized(w, r, http.StatusBadRequest, "SESSION_REQUIRED", i18n.KeySessionRequired)
		return "", false
	}
	return sid, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := validator.DecodeAndValidate(r, dst); err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			httputil.WriteValidationError(w, err, "")
			return false
		}
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), nil)
		return false
	}
	return true
}

// decodeJSON decodes without validating, for bodies whose validation must
// wait on other checks.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
