package card

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"23,85", 2385},
		{"1.120,40", 112040},
		{"1,120.40", 112040},
		{"62.10", 6210},
		{"1.5", 150},
		{"1.234", 123400},
		{"1.234.567", 123456700},
		{"-84,99", -8499},
		{"12,50 €", 1250},
		{"EUR 7", 700},
		{"0,005", 1},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAmount(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	_, err := parseAmount(" € ")
	assert.ErrorIs(t, err, errEmptyAmount)

	_, err = parseAmount("n/a")
	assert.Error(t, err)
}
