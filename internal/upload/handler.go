package upload

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/helmdesk/helmdesk/internal/platform/httpx"
)

const (
	// multipartSlack covers part headers and the small text fields.
	multipartSlack = 1 << 20
	maxFieldSize   = 1 << 10
)

// Handler exposes the upload endpoint.
type Handler struct {
	logger     *slog.Logger
	gatekeeper *Gatekeeper
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, gatekeeper *Gatekeeper) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, gatekeeper: gatekeeper}
}

// MountRoutes registers upload routes. Authentication happens inside the
// gatekeeper so the route needs no gateway middleware.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/upload", h.handleUpload)
}

type uploadResponse struct {
	Success bool `json:"success"`
	Result
}

// handleUpload authenticates before reading the body, then streams the
// multipart parts. Text fields must precede the file part; the file is
// handed to the gatekeeper unbuffered so its own size limit applies.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	principal, err := h.gatekeeper.Authenticate(r.Context(), header)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.gatekeeper.largestCeiling()+multipartSlack)
	reader, err := r.MultipartReader()
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	fields := map[string]string{}
	req := Request{Authorization: header, Size: -1}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		if part.FormName() == "file" && part.FileName() != "" {
			req.Body = part
			req.Bucket = fields["bucket"]
			req.DeclaredExtension = declaredExtension(fields, part.FileName())
			break
		}
		value, err := io.ReadAll(io.LimitReader(part, maxFieldSize))
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		fields[part.FormName()] = strings.TrimSpace(string(value))
	}
	if req.Body == nil {
		req.Bucket = fields["bucket"]
		req.DeclaredExtension = declaredExtension(fields, "")
	}

	result, err := h.gatekeeper.IngestAs(r.Context(), principal, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, uploadResponse{Success: true, Result: result})
}

// declaredExtension reads declaredExtension, then the legacy fileType field,
// then the client file name.
func declaredExtension(fields map[string]string, filename string) string {
	if v := fields["declaredExtension"]; v != "" {
		return v
	}
	if v := fields["fileType"]; v != "" {
		return v
	}
	return filepath.Ext(filename)
}
