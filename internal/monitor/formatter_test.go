package monitor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPercentage(t *testing.T) {
	tests := []struct {
		name     string
		ratio    float64
		expected string
	}{
		{"normal", 0.985, "98.5%"},
		{"zero", 0.0, "0.0%"},
		{"one", 1.0, "100.0%"},
		{"small", 0.012, "1.2%"},
		{"very_small", 0.0003, "0.0%"},
		{"over_hundred", 1.5, "150.0%"},
		{"negative", -0.25, "-25.0%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatPercentage(tt.ratio))
		})
	}
}

func TestFormatScore(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		expected string
	}{
		{"whole", 85, "85/100"},
		{"rounds", 72.6, "73/100"},
		{"zero", 0, "0/100"},
		{"nan", math.NaN(), "NaN/100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatScore(tt.score))
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		name     string
		chars    int
		expected string
	}{
		{"chars", 512, "512 chars"},
		{"zero", 0, "0 chars"},
		{"thousands", 1_000, "1.0k chars"},
		{"fractional thousands", 24_500, "24.5k chars"},
		{"millions", 1_500_000, "1.5M chars"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatSize(tt.chars))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		seconds  int64
		expected string
	}{
		{"hours_and_minutes", 8100, "2h 15m"},
		{"only_hours", 7200, "2h 0m"},
		{"minutes_and_seconds", 905, "15m 5s"},
		{"seconds", 42, "42s"},
		{"zero", 0, "0s"},
		{"one_minute", 60, "1m 0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDuration(tt.seconds))
		})
	}
}
