package catalog_repo

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizzplus/internal/core/id"
	"bizzplus/internal/domain/catalog"
	"bizzplus/internal/infrastructure/storage/postgres"
)

func TestActiveAt_SQL(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	sql, args, err := postgres.Builder().Select("id").From("sku_prices").Where(activeAt("", at)).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id FROM sku_prices WHERE (effective_from <= $1 AND (effective_to IS NULL OR effective_to >= $2))",
		sql)
	assert.Equal(t, []any{at, at}, args)
}

func TestListSKUsQuery_NumbersNestedPlaceholders(t *testing.T) {
	mfr := id.New()
	now := time.Now().UTC()

	sql, args, err := listSKUsQuery(mfr, "rice", now).ToSql()
	require.NoError(t, err)

	assert.NotContains(t, sql, "?")
	assert.Contains(t, sql, "p.effective_from <= $1")
	assert.Contains(t, sql, ") AS current_price")
	assert.Contains(t, sql, "s.manufacturer_id = $3")
	assert.True(t, strings.HasSuffix(sql, "(s.name ILIKE $4 OR s.sku_code ILIKE $5)"), sql)
	assert.Equal(t, []any{now, now, mfr.String(), "%rice%", "%rice%"}, args)
}

func TestUpsertSKUQuery(t *testing.T) {
	sku := &catalog.SKU{
		ID: id.New(), ManufacturerID: id.New(), Code: "SF-ATTA-5", Name: "Atta 5kg",
		GSTPercent: decimal.NewFromInt(5), UOM: "BAG",
	}

	sql, args, err := upsertSKUQuery(sku).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql,
		"INSERT INTO skus (id,manufacturer_id,sku_code,name,hsn,gst_percent,uom,created_at,updated_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) "+
			"ON CONFLICT ON CONSTRAINT uq_skus_manufacturer_code DO UPDATE SET"), sql)
	assert.Contains(t, sql, "(xmax = 0) AS created")
	assert.NotContains(t, sql, "sku_code = EXCLUDED", "the conflict key is never rewritten")
	assert.Len(t, args, 9)
}
