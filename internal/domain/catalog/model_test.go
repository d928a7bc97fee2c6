package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizzplus/internal/core/id"
	"bizzplus/internal/core/types"
)

func TestPrice_ActiveAt(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(48 * time.Hour)

	open := Price{EffectiveFrom: from}
	closed := Price{EffectiveFrom: from, EffectiveTo: &to}

	assert.False(t, open.ActiveAt(from.Add(-time.Second)))
	assert.True(t, open.ActiveAt(from))
	assert.True(t, open.ActiveAt(from.AddDate(5, 0, 0)))

	assert.True(t, closed.ActiveAt(to), "effective_to is inclusive")
	assert.False(t, closed.ActiveAt(to.Add(time.Nanosecond)))
}

func TestSelectActive(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := base.Add(24 * time.Hour)
	now := base.Add(12 * time.Hour)

	lowID := id.MustParse("00000000-0000-7000-8000-000000000001")
	highID := id.MustParse("00000000-0000-7000-8000-000000000002")

	tests := []struct {
		name   string
		prices []Price
		want   string
	}{
		{
			name:   "no prices",
			prices: nil,
			want:   "",
		},
		{
			name: "future price ignored",
			prices: []Price{
				{ID: lowID, Price: types.MustMoney("100"), EffectiveFrom: base},
				{ID: highID, Price: types.MustMoney("120"), EffectiveFrom: now.Add(time.Hour)},
			},
			want: "100",
		},
		{
			name: "latest effective_from wins",
			prices: []Price{
				{ID: highID, Price: types.MustMoney("90"), EffectiveFrom: base, EffectiveTo: &end},
				{ID: lowID, Price: types.MustMoney("95"), EffectiveFrom: base.Add(time.Hour)},
			},
			want: "95",
		},
		{
			name: "tie broken by id",
			prices: []Price{
				{ID: lowID, Price: types.MustMoney("10"), EffectiveFrom: base},
				{ID: highID, Price: types.MustMoney("11"), EffectiveFrom: base},
			},
			want: "11",
		},
		{
			name: "expired price ignored",
			prices: []Price{
				{ID: lowID, Price: types.MustMoney("10"), EffectiveFrom: base.Add(-48 * time.Hour), EffectiveTo: &base},
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectActive(tt.prices, now)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, got.Price.Equal(types.MustMoney(tt.want)), "got %s", got.Price)
		})
	}
}
