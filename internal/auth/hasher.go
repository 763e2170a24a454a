package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"

	"github.com/helmdesk/helmdesk/internal/shared"
)

// FallbackMarker prefixes base64 encoded plaintext sent by clients that cannot
// compute SHA-256 locally. Accepting it downgrades transport protection to
// whatever TLS provides, so every use is logged.
const FallbackMarker = "plain:"

const digestLength = sha256.Size * 2

// TransportDigest returns the lowercase hex SHA-256 a client sends in place of
// the password.
func TransportDigest(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// NormalizeDigest turns a submitted credential into a canonical transport
// digest. fallback reports whether the marker path was taken.
func NormalizeDigest(submitted string) (digest string, fallback bool, err error) {
	if rest, ok := strings.CutPrefix(submitted, FallbackMarker); ok {
		raw, decodeErr := base64.StdEncoding.DecodeString(rest)
		if decodeErr != nil || len(raw) == 0 {
			return "", true, shared.Validation("malformed password digest")
		}
		return TransportDigest(string(raw)), true, nil
	}
	candidate := strings.ToLower(strings.TrimSpace(submitted))
	if len(candidate) != digestLength {
		return "", false, shared.Validation("malformed password digest")
	}
	if _, decodeErr := hex.DecodeString(candidate); decodeErr != nil {
		return "", false, shared.Validation("malformed password digest")
	}
	return candidate, false, nil
}

// Hasher applies the storage-grade adaptive hash to transport digests.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher using bcrypt.DefaultCost when cost is out of range.
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return Hasher{Cost: cost}
}

// Hash returns the bcrypt hash of a normalized digest.
func (h Hasher) Hash(digest string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(digest), cost)
	if err != nil {
		return "", shared.Internal("hash credential", err)
	}
	return string(hashed), nil
}

// Verify reports whether digest matches the stored hash.
func (h Hasher) Verify(digest, hash string) bool {
	if digest == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(digest)) == nil
}

// NormalizeUsername trims and NFKC-normalizes a username so visually identical
// input maps to one account. Case is significant.
func NormalizeUsername(username string) string {
	return norm.NFKC.String(strings.TrimSpace(username))
}
