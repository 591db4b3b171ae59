package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ariefcatur/go-marketplace/internal/market"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

const maxBody = 1 << 20

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v)
}

// errorStatus maps the market error kinds onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, market.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, market.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, market.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, market.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, market.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes err with its mapped status. Store failures are logged and
// answered with fallback so driver details never reach the client.
func fail(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error, fallback string) {
	code := errorStatus(err)
	if code == http.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		}).Error(fallback)
		writeError(w, code, fallback)
		return
	}
	var me *market.Error
	if errors.As(err, &me) {
		writeError(w, code, me.Msg)
		return
	}
	writeError(w, code, fallback)
}
