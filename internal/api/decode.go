// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 64 << 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
// It writes the 400 response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := "Request body must be a JSON object"
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			msg = "Request body too large"
		case errors.Is(err, io.EOF):
			msg = "Request body is empty"
		case strings.HasPrefix(err.Error(), "json: unknown field"):
			msg = strings.TrimPrefix(err.Error(), "json: ")
		}
		RespondError(w, r, http.StatusBadRequest, &APIError{Code: ErrInvalidInput.Code, Message: msg})
		return false
	}
	if dec.More() {
		RespondError(w, r, http.StatusBadRequest, &APIError{Code: ErrInvalidInput.Code, Message: "Request body must contain a single JSON object"})
		return false
	}
	return true
}

// validateBody runs struct validation and writes a field-level 400 on failure.
func validateBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := validate.Struct(v)
	if err == nil {
		return true
	}
	apiErr := &APIError{Code: ErrInvalidInput.Code, Message: ErrInvalidInput.Message}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		apiErr.Field = verrs[0].Field()
		apiErr.Message = verrs[0].Field() + " failed " + verrs[0].Tag()
	}
	RespondError(w, r, http.StatusBadRequest, apiErr)
	return false
}
