package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizzplus/internal/core/types"
)

func TestClassifier_DefaultRule(t *testing.T) {
	c, err := NewClassifier("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLowStockRule, c.Rule())

	tests := []struct {
		onHand string
		want   AlertKind
	}{
		{"-3", AlertNegative},
		{"0", AlertNone},
		{"0.5", AlertLow},
		{"10", AlertLow},
		{"10.001", AlertNone},
		{"250", AlertNone},
	}
	for _, tt := range tests {
		t.Run(tt.onHand, func(t *testing.T) {
			kind, err := c.Classify(Balance{OnHand: types.MustMoney(tt.onHand)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestClassifier_CustomRuleUsesReserved(t *testing.T) {
	c, err := NewClassifier("on_hand - reserved < 5.0")
	require.NoError(t, err)

	kind, err := c.Classify(Balance{OnHand: types.MustMoney("20"), Reserved: types.MustMoney("18")})
	require.NoError(t, err)
	assert.Equal(t, AlertLow, kind)

	kind, err = c.Classify(Balance{OnHand: types.MustMoney("20"), Reserved: types.MustMoney("1")})
	require.NoError(t, err)
	assert.Equal(t, AlertNone, kind)
}

func TestNewClassifier_Rejects(t *testing.T) {
	_, err := NewClassifier("on_hand +")
	assert.Error(t, err)

	_, err = NewClassifier("on_hand * 2.0")
	assert.ErrorContains(t, err, "must return bool")

	_, err = NewClassifier("stock < 1.0")
	assert.Error(t, err)
}
