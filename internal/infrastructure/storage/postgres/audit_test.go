package postgres

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	changes := Diff(
		map[string]any{"precio": "100", "nombre": "Yerba", "marca": "X"},
		map[string]any{"precio": "120", "nombre": "Yerba", "stock": 4},
	)

	assert.Equal(t, map[string]any{"old": "100", "new": "120"}, changes["precio"])
	assert.Equal(t, map[string]any{"old": nil, "new": 4}, changes["stock"])
	assert.Equal(t, map[string]any{"old": "X", "new": nil}, changes["marca"])
	assert.NotContains(t, changes, "nombre")
}

func TestAuditService_CompressRoundTrip(t *testing.T) {
	svc, err := NewAuditService(nil)
	require.NoError(t, err)

	large := AuditEntry{Changes: append([]byte(`{"x":"`), append(bytes.Repeat([]byte("a"), 20*1024), []byte(`"}`)...)...)}
	original := append([]byte(nil), large.Changes...)

	svc.compress(&large)
	assert.Equal(t, CompressionZstd, large.CompressionAlgo)
	assert.Nil(t, large.Changes)
	assert.Less(t, len(large.ChangesCompressed), len(original))

	require.NoError(t, svc.decompress(&large))
	assert.Equal(t, original, []byte(large.Changes))

	small := AuditEntry{Changes: []byte(`{"a":1}`)}
	svc.compress(&small)
	assert.Equal(t, CompressionNone, small.CompressionAlgo)
}
