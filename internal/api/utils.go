package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"

	"interview-copilot/internal/upstream"
)

// Session identifiers are UUID strings; anything shorter than this is
// rejected before a store lookup.
const minSessionIDLength = 10

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func CodedError(code int, err error) error {
	return &codedError{err: err, code: code}
}

func CodedErrorf(code int, format string, args ...any) error {
	return &codedError{err: fmt.Errorf(format, args...), code: code}
}

func ParseRequest[T any](r *http.Request) (T, error) {
	var data T
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		slog.Error("error parsing request body", "error", err)
		return data, CodedErrorf(http.StatusBadRequest, "unable to parse request body")
	}
	return data, nil
}

// ParseOptionalRequest is ParseRequest for endpoints whose body may be
// omitted entirely; an empty body yields the zero value.
func ParseOptionalRequest[T any](r *http.Request) (T, error) {
	var data T
	err := json.NewDecoder(r.Body).Decode(&data)
	if errors.Is(err, io.EOF) {
		return data, nil
	}
	if err != nil {
		slog.Error("error parsing request body", "error", err)
		return data, CodedErrorf(http.StatusBadRequest, "unable to parse request body")
	}
	return data, nil
}

func ParseRequestQueryParams[T any](r *http.Request) (T, error) {
	var data T
	if err := r.ParseForm(); err != nil {
		slog.Error("error parsing form", "error", err)
		return data, CodedErrorf(http.StatusBadRequest, "unable to parse request query params")
	}

	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	if err := decoder.Decode(&data, r.Form); err != nil {
		slog.Error("error decoding query params", "error", err)
		return data, CodedErrorf(http.StatusBadRequest, "unable to parse request query params")
	}

	return data, nil
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func RestHandler(handler func(r *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := handler(r)
		if err != nil {
			var cerr *codedError
			if errors.As(err, &cerr) {
				writeJSONError(w, cerr.code, err.Error())
				if cerr.code == http.StatusInternalServerError {
					slog.Error("internal server error received in endpoint", "error", err)
				}
			} else {
				slog.Error("received non coded error from endpoint", "error", err)
				writeJSONError(w, http.StatusInternalServerError, "internal server error")
			}
			return
		}

		if res == nil {
			res = struct{}{}
		}

		WriteJsonResponse(w, res)
	}
}

func WriteJsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("error serializing response body", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, code int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Detail: detail})
}

func validateSessionID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if len(id) < minSessionIDLength {
		return "", CodedErrorf(http.StatusBadRequest, "invalid session id")
	}
	return id, nil
}

func URLParamSessionID(r *http.Request, key string) (string, error) {
	param := chi.URLParam(r, key)
	if param == "" {
		return "", CodedErrorf(http.StatusBadRequest, "missing {%v} url parameter", key)
	}
	return validateSessionID(param)
}

func runeLength(s string) int {
	return utf8.RuneCountInString(s)
}

// upstreamToCoded maps a gateway failure onto the error taxonomy: a non-2xx
// upstream response becomes 400 or 500 depending on whether the upstream
// blamed the request, and a transport failure becomes 500. The upstream body
// stays in the logs, not the response.
func upstreamToCoded(err error, message string) error {
	var uerr *upstream.Error
	if errors.As(err, &uerr) {
		slog.Error(message, "service", uerr.Service, "status", uerr.StatusCode, "body", uerr.Body)
		if uerr.StatusCode >= 400 && uerr.StatusCode < 500 {
			return CodedErrorf(http.StatusBadRequest, "%s: upstream rejected the request", message)
		}
		return CodedErrorf(http.StatusInternalServerError, "%s", message)
	}
	slog.Error(message, "error", err)
	return CodedErrorf(http.StatusInternalServerError, "%s", message)
}

func isUpstreamRejection(err error) bool {
	var uerr *upstream.Error
	return errors.As(err, &uerr) && uerr.StatusCode != 0
}
