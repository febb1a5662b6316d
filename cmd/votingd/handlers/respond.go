package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tokenized/voting-contract/internal/platform/logger"
	"github.com/tokenized/voting-contract/internal/rejections"

	"go.opencensus.io/trace"
)

// HeaderCaller carries the address of the caller of an operation.
const HeaderCaller = "X-Caller-Address"

// HeaderRequestID carries an optional request ID from the client.
const HeaderRequestID = "X-Request-ID"

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// requestContext gives every request a logger with its request ID and logs
// the outcome.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.ContextWithRequestID(r.Context(), r.Header.Get(HeaderRequestID))

		ctx, span := trace.StartSpan(ctx, "handlers."+r.Method+" "+r.URL.Path)
		defer span.End()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r.WithContext(ctx))

		if sw.status >= http.StatusInternalServerError {
			logger.Error(ctx, "%s %s : %d (%s)", r.Method, r.URL.Path, sw.status, time.Since(start))
		} else {
			logger.Verbose(ctx, "%s %s : %d (%s)", r.Method, r.URL.Path, sw.status, time.Since(start))
		}
	})
}

// respond writes a JSON body.
func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)

	if body == nil {
		return
	}
	json.NewEncoder(w).Encode(body)
}

// respondError writes the status matching the rejection kind of err.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := rejections.KindOf(err)
	status := StatusForKind(kind)

	if kind == rejections.KindNone {
		logger.Error(r.Context(), "Request failed : %s", err)
		respond(w, status, ErrorResponse{Error: "internal error"})
		return
	}

	respond(w, status, ErrorResponse{Error: err.Error(), Kind: kind.String()})
}

// respondBadRequest writes a malformed request error.
func respondBadRequest(w http.ResponseWriter, message string) {
	respond(w, http.StatusBadRequest, ErrorResponse{Error: message,
		Kind: rejections.KindMalformed.String()})
}

// StatusForKind maps a rejection kind to an HTTP status.
func StatusForKind(kind rejections.Kind) int {
	switch kind {
	case rejections.KindAuthorization:
		return http.StatusForbidden
	case rejections.KindNotFound:
		return http.StatusNotFound
	case rejections.KindState, rejections.KindAlreadyDone:
		return http.StatusConflict
	case rejections.KindPayment:
		return http.StatusPaymentRequired
	case rejections.KindMalformed:
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}
