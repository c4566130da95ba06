package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeGenerator_Generate(t *testing.T) {
	gen := NewCodeGenerator(8)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := gen.Generate()
		require.NoError(t, err)
		assert.Len(t, code, 8)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected character %q in %q", r, code)
		}
		seen[code] = true
	}

	// 100 draws from a 62^8 space colliding would point at a broken source.
	assert.Len(t, seen, 100)
}

func TestCodeGenerator_LengthFallback(t *testing.T) {
	assert.Equal(t, DefaultCodeLength, NewCodeGenerator(0).Length())
	assert.Equal(t, DefaultCodeLength, NewCodeGenerator(-3).Length())
	assert.Equal(t, DefaultCodeLength, NewCodeGenerator(MaxCodeLength+1).Length())
	assert.Equal(t, 12, NewCodeGenerator(12).Length())
}

func TestValidateRequestedCode(t *testing.T) {
	tests := []struct {
		code     string
		expected bool
	}{
		{"abc", true},
		{"ab", false}, // below minimum length
		{"", false},
		{"Abc123XY", true},
		{"has space", false},
		{"under_score", false},
		{"dash-ed", false},
		{strings.Repeat("a", MaxCodeLength), true},
		{strings.Repeat("a", MaxCodeLength+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateRequestedCode(tt.code))
		})
	}
}
