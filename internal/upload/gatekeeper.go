package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/helmdesk/helmdesk/internal/observability"
	"github.com/helmdesk/helmdesk/internal/rbac"
	"github.com/helmdesk/helmdesk/internal/shared"
)

// Rejection reasons used as metric labels.
const (
	reasonAuth      = "auth"
	reasonBucket    = "bucket"
	reasonSize      = "size"
	reasonExtension = "extension"
	reasonSignature = "signature"
	reasonRead      = "read"
	reasonStorage   = "storage"
)

// ErrSignatureMismatch marks content that does not match its declared format.
var ErrSignatureMismatch = errors.New("file content does not match declared type")

// Gateway authenticates callers and authorizes operations.
type Gateway interface {
	Authenticate(ctx context.Context, header string) (shared.Principal, error)
	Authorize(ctx context.Context, accountID string, op rbac.Operation) error
}

// ObjectStore persists accepted payloads.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key, contentType string, payload []byte) (string, error)
	PublicURL(bucket, key string) string
}

// Request is one upload attempt. Size is the client-reported length, or -1
// when unknown; the body is always re-measured.
type Request struct {
	Authorization     string
	Bucket            string
	DeclaredExtension string
	Size              int64
	Body              io.Reader
}

// Result describes a stored object.
type Result struct {
	Path        string  `json:"path"`
	PublicURL   *string `json:"publicUrl"`
	Size        int64   `json:"size"`
	UploadedBy  string  `json:"uploadedBy"`
	ContentType string  `json:"contentType"`
}

// Gatekeeper validates uploads before handing them to object storage.
type Gatekeeper struct {
	buckets map[string]Bucket
	gateway Gateway
	store   ObjectStore
	audit   shared.Auditor
	logger  *slog.Logger
	metrics *observability.Metrics
	timeout time.Duration
}

// NewGatekeeper constructs a Gatekeeper. timeout bounds the storage write.
func NewGatekeeper(gateway Gateway, store ObjectStore, audit shared.Auditor, logger *slog.Logger, metrics *observability.Metrics, timeout time.Duration) *Gatekeeper {
	if audit == nil {
		audit = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Gatekeeper{buckets: Buckets, gateway: gateway, store: store, audit: audit, logger: logger, metrics: metrics, timeout: timeout}
}

// Ingest runs authentication, role, size, extension and signature checks in
// order and stores the payload under a fresh name. Nothing is written unless
// every check passes.
func (g *Gatekeeper) Ingest(ctx context.Context, req Request) (Result, error) {
	principal, err := g.Authenticate(ctx, req.Authorization)
	if err != nil {
		return Result{}, err
	}
	return g.IngestAs(ctx, principal, req)
}

// Authenticate validates the bearer header. Callers streaming a body run it
// before reading any of the payload.
func (g *Gatekeeper) Authenticate(ctx context.Context, header string) (shared.Principal, error) {
	principal, err := g.gateway.Authenticate(ctx, header)
	if err != nil {
		g.metrics.ObserveUploadRejection("unknown", reasonAuth)
		return shared.Principal{}, err
	}
	return principal, nil
}

// IngestAs runs every check after authentication for an already
// authenticated principal.
func (g *Gatekeeper) IngestAs(ctx context.Context, principal shared.Principal, req Request) (Result, error) {
	bucket, ok := g.buckets[req.Bucket]
	if !ok {
		g.metrics.ObserveUploadRejection("unknown", reasonBucket)
		return Result{}, shared.Validation("unknown bucket %q", req.Bucket)
	}
	if err := g.gateway.Authorize(ctx, principal.AccountID, bucket.Operation); err != nil {
		g.metrics.ObserveUploadRejection(bucket.Name, reasonAuth)
		return Result{}, err
	}

	if req.Size > bucket.MaxSize {
		g.metrics.ObserveUploadRejection(bucket.Name, reasonSize)
		return Result{}, shared.Validation("%s", bucket.ceilingMessage())
	}

	ext := normalizeExtension(req.DeclaredExtension)
	if ext != bucket.Extension {
		g.metrics.ObserveUploadRejection(bucket.Name, reasonExtension)
		return Result{}, shared.Validation("%s only accepts .%s files", bucket.Name, bucket.Extension)
	}

	if req.Body == nil {
		g.metrics.ObserveUploadRejection(bucket.Name, reasonRead)
		return Result{}, shared.Validation("file is required")
	}
	payload, err := io.ReadAll(io.LimitReader(req.Body, bucket.MaxSize+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			g.metrics.ObserveUploadRejection(bucket.Name, reasonSize)
			return Result{}, shared.Validation("%s", bucket.ceilingMessage())
		}
		g.metrics.ObserveUploadRejection(bucket.Name, reasonRead)
		return Result{}, shared.Validation("could not read file")
	}
	if int64(len(payload)) > bucket.MaxSize {
		g.metrics.ObserveUploadRejection(bucket.Name, reasonSize)
		return Result{}, shared.Validation("%s", bucket.ceilingMessage())
	}
	if len(payload) == 0 {
		g.metrics.ObserveUploadRejection(bucket.Name, reasonRead)
		return Result{}, shared.Validation("file is empty")
	}

	if !bucket.Signature.Matches(payload) {
		g.metrics.ObserveUploadRejection(bucket.Name, reasonSignature)
		return Result{}, &shared.Error{
			Kind:    shared.KindValidation,
			Message: fmt.Sprintf("file content is not a valid .%s file", bucket.Extension),
			Err:     ErrSignatureMismatch,
		}
	}

	key := uuid.NewString() + "." + bucket.Extension
	contentType := detectContentType(payload, bucket.ContentType)

	storeCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	path, err := g.store.Put(storeCtx, bucket.Name, key, contentType, payload)
	if err != nil {
		g.metrics.ObserveUploadRejection(bucket.Name, reasonStorage)
		return Result{}, shared.Internal("store upload", err)
	}
	g.metrics.ObserveUploadStored(bucket.Name, int64(len(payload)))

	result := Result{
		Path:        path,
		Size:        int64(len(payload)),
		UploadedBy:  principal.AccountID,
		ContentType: contentType,
	}
	if bucket.Public {
		u := g.store.PublicURL(bucket.Name, path)
		result.PublicURL = &u
	}

	if err := g.audit.Record(ctx, shared.AuditLog{
		ActorID:  principal.AccountID,
		Action:   shared.AuditUploadStored,
		Entity:   bucket.Name,
		EntityID: path,
		Meta:     map[string]any{"size": result.Size, "content_type": contentType},
	}); err != nil {
		g.logger.Warn("audit record failed", slog.String("action", shared.AuditUploadStored), slog.Any("error", err))
	}
	return result, nil
}

// largestCeiling returns the biggest MaxSize across the configured buckets.
func (g *Gatekeeper) largestCeiling() int64 {
	var largest int64
	for _, b := range g.buckets {
		if b.MaxSize > largest {
			largest = b.MaxSize
		}
	}
	return largest
}

func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

func detectContentType(payload []byte, fallback string) string {
	detected := mimetype.Detect(payload)
	if detected.Is("application/octet-stream") {
		return fallback
	}
	return detected.String()
}
