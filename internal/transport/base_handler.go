package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/upstream"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/pkg/logger"
)

const maxBodyBytes = 1 << 20

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// Log returns the request-scoped logger when one is attached.
func (h *BaseHandler) Log(r *http.Request) *slog.Logger {
	if l, ok := logger.Lookup(r.Context()); ok {
		return l
	}
	return h.Logger
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes a bare status and message.
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	h.WriteAppError(w, &internal.AppError{
		Type:       errorTypeFor(status),
		Code:       internal.ErrorCode(strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))),
		Message:    message,
		StatusCode: status,
	})
}

func (h *BaseHandler) WriteAppError(w http.ResponseWriter, appErr *internal.AppError) {
	status, body := appErr.ToHTTPResponse()
	h.WriteJSON(w, status, body)
}

// HandleError maps any operation error onto the error taxonomy. Upstream
// failures keep their extracted message; raw upstream bodies and causes are
// logged only.
func (h *BaseHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	log := h.Log(r)

	if appErr, ok := internal.IsAppError(err); ok {
		if appErr.StatusCode >= http.StatusInternalServerError {
			log.Error("request failed", "code", appErr.Code, "error", err)
		} else {
			log.Warn("request rejected", "code", appErr.Code, "status", appErr.StatusCode, "message", appErr.GetDetailedMessage())
		}
		h.WriteAppError(w, appErr)
		return
	}

	if ue, ok := upstream.AsError(err); ok {
		log.Error("upstream call failed",
			"method", ue.Method,
			"path", ue.Path,
			"upstream_status", ue.StatusCode,
			"message", ue.Message,
			"details", ue.Details)
		h.WriteAppError(w, internal.NewUpstreamError(ue.Message, ue))
		return
	}

	log.Error("unhandled error", "error", err)
	h.WriteAppError(w, internal.NewInternalError("Internal server error", err))
}

// Identity reads the branch identity placed by the auth middleware and
// answers 401 when there is none.
func (h *BaseHandler) Identity(w http.ResponseWriter, r *http.Request) (internal.Identity, bool) {
	id, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.HandleError(w, r, internal.ErrMissingToken)
	}
	return id, ok
}

// Respond writes payload as JSON, or maps err.
func (h *BaseHandler) Respond(w http.ResponseWriter, r *http.Request, status int, payload any, err error) {
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteJSON(w, status, payload)
}

// DecodeObject reads a JSON object body. Numbers keep their literal text so
// ids pass through to upstream unchanged.
func (h *BaseHandler) DecodeObject(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	raw, err := h.ReadBody(w, r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, internal.ErrInvalidBody.WithCause(err)
	}
	if body == nil {
		return nil, internal.ErrInvalidBody
	}
	return body, nil
}

// ReadBody reads at most 1MiB of request body.
func (h *BaseHandler) ReadBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, internal.NewValidationError("request body too large", internal.ErrCodeInvalidBody)
		}
		return nil, internal.ErrInvalidBody.WithCause(err)
	}
	return raw, nil
}

// IDParam parses a positive numeric path segment.
func (h *BaseHandler) IDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, internal.ErrInvalidID
	}
	return id, nil
}

// WriteAttachment sends a file download.
func (h *BaseHandler) WriteAttachment(w http.ResponseWriter, contentType, filename string, content []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content); err != nil {
		h.Logger.Error("failed to write attachment", "filename", filename, "error", err)
	}
}

func errorTypeFor(status int) internal.ErrorType {
	switch status {
	case http.StatusBadRequest:
		return internal.ErrorTypeValidation
	case http.StatusUnauthorized:
		return internal.ErrorTypeUnauthorized
	case http.StatusForbidden:
		return internal.ErrorTypeForbidden
	case http.StatusNotFound:
		return internal.ErrorTypeNotFound
	default:
		return internal.ErrorTypeInternal
	}
}
