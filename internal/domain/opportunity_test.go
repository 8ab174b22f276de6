package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskLevelFromZScore(t *testing.T) {
	tests := []struct {
		name string
		z    float64
		want RiskLevel
	}{
		{"zero", 0, RiskLow},
		{"just below one", 0.99, RiskLow},
		{"exactly one", 1.0, RiskMedium},
		{"between one and two", 1.5, RiskMedium},
		{"exactly two", 2.0, RiskHigh},
		{"far out", 4.2, RiskHigh},
		{"negative uses magnitude", -1.5, RiskMedium},
		{"negative extreme", -2.0, RiskHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RiskLevelFromZScore(tt.z))
		})
	}
}
