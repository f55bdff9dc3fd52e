// Package gamecode generates the short room codes players type to find
// a table.
package gamecode

import (
	"crypto/rand"
	"fmt"
)

// Alphabet excludes the homoglyph pairs O/0 and I/1 so codes survive
// being read aloud or scrawled on a napkin.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Length is the number of characters in a room code.
const Length = 6

// RandSource allows deterministic code generation in tests.
type RandSource interface {
	Intn(n int) int
}

// Generator produces room codes from a RandSource, or crypto/rand when
// none is provided.
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a generator. Pass nil to use crypto/rand.
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate returns a new 6-character room code using crypto/rand.
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate returns a new 6-character room code.
func (g *Generator) Generate() string {
	code := make([]byte, Length)
	if g.randSource != nil {
		for i := range code {
			code[i] = Alphabet[g.randSource.Intn(len(Alphabet))]
		}
		return string(code)
	}

	// Rejection sampling keeps the distribution uniform: 32 symbols
	// divide 256 evenly, so a straight modulo works here, but guard
	// against alphabet edits breaking that property.
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		panic("gamecode: reading random bytes: " + err.Error())
	}
	for i, b := range buf {
		code[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(code)
}

// Validate checks that a code is exactly six characters from the
// alphabet.
func Validate(code string) error {
	if len(code) != Length {
		return fmt.Errorf("room code must be %d characters, got %d", Length, len(code))
	}
	for i := 0; i < len(code); i++ {
		if !validChar(code[i]) {
			return fmt.Errorf("invalid character %q at position %d", code[i], i)
		}
	}
	return nil
}

func validChar(c byte) bool {
	for i := 0; i < len(Alphabet); i++ {
		if Alphabet[i] == c {
			return true
		}
	}
	return false
}

// Normalize uppercases a user-typed code.
func Normalize(code string) string {
	out := make([]byte, len(code))
	for i := 0; i < len(code); i++ {
		c := code[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
