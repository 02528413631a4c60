package identity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/taskvine/identity"
)

func TestIsOutsideThresholdPeriod(t *testing.T) {
	tests := []struct {
		name          string
		inputTime     time.Time
		thresholdExpr string
		expected      bool
		expectErr     bool
	}{
		{
			name:          "Within 1 hour threshold",
			inputTime:     time.Now().Add(-30 * time.Minute),
			thresholdExpr: "1h",
			expected:      false,
		},
		{
			name:          "Outside 1 hour threshold",
			inputTime:     time.Now().Add(-90 * time.Minute),
			thresholdExpr: "1h",
			expected:      true,
		},
		{
			name:          "Complex threshold (2h30m)",
			inputTime:     time.Now().Add(-2 * time.Hour),
			thresholdExpr: "2h30m",
			expected:      false,
		},
		{
			name:          "Outside 24 hour window",
			inputTime:     time.Now().Add(-25 * time.Hour),
			thresholdExpr: "24h",
			expected:      true,
		},
		{
			name:          "Future time",
			inputTime:     time.Now().Add(1 * time.Hour),
			thresholdExpr: "2h",
			expected:      false,
		},
		{
			name:          "Invalid threshold expression",
			inputTime:     time.Now(),
			thresholdExpr: "invalid",
			expectErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := identity.IsOutsideThresholdPeriod(tt.inputTime, tt.thresholdExpr)

			if tt.expectErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
