package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateOffset(t *testing.T) {
	tests := []struct {
		name          string
		page, perPage int
		want          int
	}{
		{"first page", 1, 10, 0},
		{"third page", 3, 10, 20},
		{"page below one", 0, 10, 0},
		{"zero per page", 5, 0, 0},
		{"huge page saturates", math.MaxInt, 10, math.MaxInt / 10 * 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateOffset(tt.page, tt.perPage))
		})
	}
}

func TestCalculateTotalPages(t *testing.T) {
	assert.Equal(t, 0, CalculateTotalPages(0, 10))
	assert.Equal(t, 1, CalculateTotalPages(10, 10))
	assert.Equal(t, 3, CalculateTotalPages(21, 10))
	assert.Equal(t, 0, CalculateTotalPages(5, 0))
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 7, ParseInt("7", 1))
	assert.Equal(t, 1, ParseInt("", 1))
	assert.Equal(t, 1, ParseInt("-3", 1))
	assert.Equal(t, 1, ParseInt("abc", 1))
	assert.Equal(t, math.MaxInt, ParseInt("9223372036854775807", 1))
}
