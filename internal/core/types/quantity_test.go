package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantity_JSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Quantity
		wantErr bool
	}{
		{name: "integer", input: `3`, want: NewQuantity(3)},
		{name: "fraction", input: `1.25`, want: Quantity(12_500)},
		{name: "string", input: `"0.5"`, want: Quantity(5_000)},
		{name: "extra digits truncated", input: `2.123456`, want: Quantity(21_234)},
		{name: "exponent", input: `1e2`, want: NewQuantity(100)},
		{name: "null", input: `null`, want: 0},
		{name: "overflow", input: `1e300`, wantErr: true},
		{name: "garbage", input: `"abc"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q Quantity
			err := json.Unmarshal([]byte(tt.input), &q)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, q)
		})
	}
}

func TestQuantity_DecimalRoundTrip(t *testing.T) {
	q := Quantity(-12_345)
	assert.Equal(t, "-1.2345", q.String())
	assert.True(t, q.Decimal().Equal(MustMoney("-1.2345")))
	assert.Equal(t, q, NewQuantityFromDecimal(q.Decimal()))

	out, err := json.Marshal(NewQuantity(2))
	require.NoError(t, err)
	assert.Equal(t, "2.0000", string(out))
}

func TestQuantity_SQL(t *testing.T) {
	v, err := Quantity(12_500).Value()
	require.NoError(t, err)
	assert.Equal(t, int64(12_500), v)

	var q Quantity
	require.NoError(t, q.Scan(int64(30_000)))
	assert.Equal(t, NewQuantity(3), q)
	assert.Error(t, q.Scan("3"))
}
