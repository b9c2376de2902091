// Package httpx holds the JSON request/response helpers used by every handler.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-charging-go/internal/apperr"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// ErrorBody is the JSON shape of every failed response.
type ErrorBody struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
	// Error and Details are only filled in development.
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

// Responder writes JSON responses and converts operation errors into the
// status codes of the apperr taxonomy.
type Responder struct {
	logger *zap.SugaredLogger
	dev    bool
}

func NewResponder(logger *zap.SugaredLogger, dev bool) *Responder {
	return &Responder{logger: logger, dev: dev}
}

// JSON writes v with the given status.
func (r *Responder) JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error logs err with the operation name and extra key/value fields and
// writes the matching response. Internal failures get a generic message.
func (r *Responder) Error(w http.ResponseWriter, req *http.Request, op string, err error, kv ...any) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	fields := append([]any{"op", op, "kind", string(kind), "status", status, "path", req.URL.Path, "err", err}, kv...)
	if status >= http.StatusInternalServerError {
		r.logger.Errorw("request failed", fields...)
	} else {
		r.logger.Warnw("request rejected", fields...)
	}

	body := ErrorBody{}
	if e, ok := apperr.As(err); ok && kind != apperr.KindInternal {
		body.Message = e.Message
		body.Errors = e.Messages()
	} else {
		body.Message = "Something went wrong!"
		if r.dev {
			body.Error = err.Error()
			body.Details = detailOf(err)
		}
	}
	r.JSON(w, status, body)
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// detailOf prints the first error in the chain that carries a stack trace
// (attached by the repositories through github.com/pkg/errors).
func detailOf(err error) string {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if _, ok := e.(stackTracer); ok {
			return fmt.Sprintf("%+v", e)
		}
	}
	return err.Error()
}

// Decode reads a JSON body into dst. Malformed JSON, a body of the wrong
// shape or trailing data yield an InvalidInput error.
func Decode(w http.ResponseWriter, req *http.Request, dst any) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	dec := json.NewDecoder(req.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Wrap(apperr.KindInvalidInput, "Request body is required", err)
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return apperr.Wrap(apperr.KindInvalidInput, fmt.Sprintf("Invalid value for field %s", typeErr.Field), err)
		}
		return apperr.Wrap(apperr.KindInvalidInput, "Invalid request body", err)
	}
	if dec.More() {
		return apperr.InvalidInput("Invalid request body")
	}
	return nil
}
