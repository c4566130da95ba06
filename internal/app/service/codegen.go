package service

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// codeAlphabet is the full alphanumeric alphabet codes are drawn from.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const (
	// DefaultCodeLength is used when no length is configured.
	DefaultCodeLength = 8

	// MinRequestedCodeLength is the shortest caller-requested code accepted.
	MinRequestedCodeLength = 3

	// MaxCodeLength matches the short_code column size.
	MaxCodeLength = 32
)

// CodeGenerator produces fixed-length random codes from codeAlphabet using
// a cryptographically strong source, so codes are not guessably sequential.
type CodeGenerator struct {
	length int
}

// NewCodeGenerator returns a generator emitting codes of the given length,
// falling back to DefaultCodeLength for non-positive values.
func NewCodeGenerator(length int) *CodeGenerator {
	if length <= 0 || length > MaxCodeLength {
		length = DefaultCodeLength
	}
	return &CodeGenerator{length: length}
}

// Length reports the configured code length.
func (g *CodeGenerator) Length() int {
	return g.length
}

// Generate returns a fresh random code. Failure of the randomness source is
// the only error and is unrecoverable for the caller.
func (g *CodeGenerator) Generate() (string, error) {
	// Rejection sampling keeps the alphabet distribution uniform: bytes at
	// or above the largest multiple of len(codeAlphabet) are discarded.
	limit := byte(256 - 256%len(codeAlphabet))

	var sb strings.Builder
	sb.Grow(g.length)

	buf := make([]byte, g.length)
	for sb.Len() < g.length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("codegen: read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			sb.WriteByte(codeAlphabet[int(b)%len(codeAlphabet)])
			if sb.Len() == g.length {
				break
			}
		}
	}

	return sb.String(), nil
}

// ValidateRequestedCode reports whether a caller-supplied code satisfies the
// alphabet and length policy. Violations are caller-input errors and must be
// rejected before any store interaction.
func ValidateRequestedCode(code string) bool {
	if len(code) < MinRequestedCodeLength || len(code) > MaxCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(codeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}
