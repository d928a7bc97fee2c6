package postgres

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizzplus/internal/core/entity"
	"bizzplus/internal/core/id"
)

type testRow struct {
	entity.Base
	Number   string          `db:"number"`
	Total    decimal.Decimal `db:"grand_total"`
	Internal string          `db:"-"`
	Loaded   []string
}

func TestExtractDBColumns_Embedded(t *testing.T) {
	cols := ExtractDBColumns[testRow]()

	assert.Equal(t, []string{"id", "version", "created_at", "updated_at", "number", "grand_total"}, cols)
}

func TestStructToMap(t *testing.T) {
	row := testRow{
		Base:     entity.NewBase(),
		Number:   "ORD-2026-000001",
		Total:    decimal.RequireFromString("590.00"),
		Internal: "skip",
	}
	row.ID = id.New()
	row.Version = 3

	m := StructToMap(&row)

	assert.Equal(t, row.ID, m["id"])
	assert.Equal(t, 3, m["version"])
	assert.Equal(t, "ORD-2026-000001", m["number"])
	assert.True(t, row.Total.Equal(m["grand_total"].(decimal.Decimal)))
	assert.NotContains(t, m, "Internal")
	assert.NotContains(t, m, "-")
	assert.Len(t, m, 6)
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
}

func TestStructValues(t *testing.T) {
	row := testRow{Base: entity.NewBase(), Number: "ORD-2026-000002", Total: decimal.NewFromInt(10)}

	vals, err := StructValues(row, []string{"number", "id", "grand_total"})
	require.NoError(t, err)
	assert.Equal(t, []any{"ORD-2026-000002", row.ID, row.Total}, vals)

	_, err = StructValues(row, []string{"missing"})
	assert.ErrorContains(t, err, `no column "missing"`)

	_, err = StructValues((*testRow)(nil), []string{"id"})
	assert.Error(t, err)
}

func TestExtractDBColumns_ReturnsCopy(t *testing.T) {
	cols := ExtractDBColumns[testRow]()
	cols[0] = "mutated"

	assert.Equal(t, "id", ExtractDBColumns[testRow]()[0])
}
