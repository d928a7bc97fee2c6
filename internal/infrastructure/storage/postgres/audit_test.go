package postgres

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizzplus/internal/core/id"
	"bizzplus/internal/domain/audit"
)

func TestChangesCodec_SmallChangesStayPlain(t *testing.T) {
	codec, err := newChangesCodec(DefaultCompressThreshold)
	require.NoError(t, err)

	entry := audit.Entry{ID: id.New(), Changes: json.RawMessage(`{"status":"placed"}`)}
	row := codec.pack(entry)

	assert.Equal(t, CompressionNone, row.CompressionAlgo)
	assert.Nil(t, row.ChangesCompressed)
	assert.JSONEq(t, `{"status":"placed"}`, string(row.Changes))
}

func TestChangesCodec_LargeChangesCompressed(t *testing.T) {
	codec, err := newChangesCodec(64)
	require.NoError(t, err)

	payload, err := json.Marshal(map[string]string{"note": strings.Repeat("fulfilled ", 100)})
	require.NoError(t, err)

	row := codec.pack(audit.Entry{ID: id.New(), Changes: payload})
	require.Equal(t, CompressionZstd, row.CompressionAlgo)
	assert.Nil(t, row.Changes)
	assert.Less(t, len(row.ChangesCompressed), len(payload))

	back, err := codec.unpack(row)
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(back.Changes))
}

func TestAuditRow_Columns(t *testing.T) {
	cols := ExtractDBColumns[auditRow]()
	assert.Contains(t, cols, "changes_compressed")
	assert.Contains(t, cols, "compression_algo")
	assert.Contains(t, cols, "entity_type")
}
