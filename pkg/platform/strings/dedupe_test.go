package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{
			name:  "removes duplicates preserving order",
			input: []string{"issuer not found", "crl stale", "issuer not found"},
			want:  []string{"issuer not found", "crl stale"},
		},
		{
			name:  "trims whitespace before comparing",
			input: []string{"  signature mismatch ", "signature mismatch"},
			want:  []string{"signature mismatch"},
		},
		{
			name:  "drops empty and blank entries",
			input: []string{"", "   ", "dg2 hash mismatch"},
			want:  []string{"dg2 hash mismatch"},
		},
		{
			name:  "nil input stays nil",
			input: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeAndTrim(tt.input))
		})
	}
}
