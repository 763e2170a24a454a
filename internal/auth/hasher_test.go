package auth

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/helmdesk/helmdesk/internal/shared"
)

func TestTransportDigestKnownVector(t *testing.T) {
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", TransportDigest("abc"))
}

func TestNormalizeDigestAcceptsHex(t *testing.T) {
	upper := strings.ToUpper(TransportDigest("s3cret"))

	digest, fallback, err := NormalizeDigest(upper)
	require.NoError(t, err)
	assert.False(t, fallback)
	assert.Equal(t, TransportDigest("s3cret"), digest)
}

func TestNormalizeDigestDecodesFallbackMarker(t *testing.T) {
	submitted := FallbackMarker + base64.StdEncoding.EncodeToString([]byte("s3cret"))

	digest, fallback, err := NormalizeDigest(submitted)
	require.NoError(t, err)
	assert.True(t, fallback)
	assert.Equal(t, TransportDigest("s3cret"), digest)
	assert.NotEqual(t, TransportDigest(submitted), digest)
}

func TestNormalizeDigestRejectsMalformed(t *testing.T) {
	for _, input := range []string{"", "short", FallbackMarker + "%%%", FallbackMarker, strings.Repeat("z", 64)} {
		_, _, err := NormalizeDigest(input)
		require.Error(t, err, input)
		assert.Equal(t, shared.KindValidation, shared.KindOf(err))
	}
}

func TestHasherRoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	digest := TransportDigest("correct horse")

	hash, err := h.Hash(digest)
	require.NoError(t, err)
	assert.NotEqual(t, digest, hash)
	assert.True(t, h.Verify(digest, hash))
	assert.False(t, h.Verify(TransportDigest("wrong"), hash))
	assert.False(t, h.Verify("", hash))
}

func TestFallbackAndHexVerifyAgainstSameHash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash(TransportDigest("p@ss"))
	require.NoError(t, err)

	digest, _, err := NormalizeDigest(FallbackMarker + base64.StdEncoding.EncodeToString([]byte("p@ss")))
	require.NoError(t, err)
	assert.True(t, h.Verify(digest, hash))
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "admin", NormalizeUsername("  admin \t"))
	assert.Equal(t, "admin", NormalizeUsername("ａｄｍｉｎ"))
	assert.Equal(t, "Admin", NormalizeUsername(" Ａdmin"))
}
