/*
Package req provides helper functions for HTTP request parsing and data binding.

It decodes JSON request bodies for the development backend, mapping content-type,
syntax and size problems onto the errs codes so handlers can answer uniformly.
*/
package req

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"mmoclient/internal/pkg/errs"
)

// MaxJSONBodySize caps request bodies. Game API payloads are a handful of fields.
const MaxJSONBodySize int64 = 64 << 10 // 64 KB

// BindJSON attempts to bind the JSON data from the HTTP request body to the destination struct dst.
// Unknown fields are ignored, as the game backend has always done.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)
	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errs.NewError(errs.ErrInvalidParams)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
