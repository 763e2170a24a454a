package upload

import (
	"bytes"
	"fmt"

	"github.com/helmdesk/helmdesk/internal/rbac"
)

// Size ceilings per bucket.
const (
	MaxPackageSize  int64 = 1 << 30   // 1 GiB
	MaxWorkflowSize int64 = 200 << 20 // 200 MiB
)

// Signature is a magic byte pattern expected at a fixed offset.
type Signature struct {
	Offset int
	Magic  []byte
}

// Matches reports whether payload carries the signature.
func (s Signature) Matches(payload []byte) bool {
	end := s.Offset + len(s.Magic)
	if len(s.Magic) == 0 || len(payload) < end {
		return false
	}
	return bytes.Equal(payload[s.Offset:end], s.Magic)
}

// Bucket describes what a storage bucket accepts.
type Bucket struct {
	Name        string
	Operation   rbac.Operation
	MaxSize     int64
	Extension   string
	Signature   Signature
	ContentType string
	Public      bool
}

// ceilingMessage renders the size rejection with the exact ceiling.
func (b Bucket) ceilingMessage() string {
	return fmt.Sprintf("file exceeds %d bytes (%d MiB)", b.MaxSize, b.MaxSize>>20)
}

// Buckets is the fixed bucket table.
var Buckets = map[string]Bucket{
	"packages": {
		Name:        "packages",
		Operation:   rbac.OpUploadPackages,
		MaxSize:     MaxPackageSize,
		Extension:   "exe",
		Signature:   Signature{Offset: 0, Magic: []byte("MZ")},
		ContentType: "application/octet-stream",
	},
	"workflows": {
		Name:        "workflows",
		Operation:   rbac.OpUploadWorkflows,
		MaxSize:     MaxWorkflowSize,
		Extension:   "mp4",
		Signature:   Signature{Offset: 4, Magic: []byte("ftyp")},
		ContentType: "video/mp4",
		Public:      true,
	},
}
