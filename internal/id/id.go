package id

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const defaultLength = 10

// Generator produces short, URL-safe, collision-resistant paste ids.
type Generator struct {
	length int
}

// New returns a Generator producing ids of the given length. If length <= 0
// the default is used.
func New(length int) *Generator {
	if length <= 0 {
		length = defaultLength
	}
	return &Generator{length: length}
}

// Generate returns a new identifier.
func (g *Generator) Generate() (string, error) {
	return gonanoid.New(g.length)
}
