package postgres

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizzplus/internal/infrastructure/storage/postgres/migrations"
)

func TestPgx5URL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://u:p@db:5432/bizzplus?sslmode=disable", "pgx5://u:p@db:5432/bizzplus?sslmode=disable"},
		{"postgresql://db/bizzplus", "pgx5://db/bizzplus"},
		{"pgx5://db/bizzplus", "pgx5://db/bizzplus"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pgx5URL(tt.in))
	}
}

func TestEmbeddedMigrations_Paired(t *testing.T) {
	entries, err := fs.ReadDir(migrations.FS, ".")
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}

	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestEmbeddedMigrations_OneVoucherSetPerOrder(t *testing.T) {
	b, err := fs.ReadFile(migrations.FS, "000006_vouchers_order_unique.up.sql")
	require.NoError(t, err)

	assert.Contains(t, string(b), "uq_vouchers_order_type ON vouchers (order_id, type) WHERE source = 'system'")
}
