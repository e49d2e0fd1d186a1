package testfixtures

import (
	"strconv"
	"sync"
)

// IDGenerator hands out "<prefix>-<n>" strings, standing in for session tokens
// and meeting link codes.
type IDGenerator struct {
	mu     sync.Mutex
	prefix string
	issued uint64
}

// NewIDGenerator starts a sequence at 1. An empty prefix becomes "id".
func NewIDGenerator(prefix string) *IDGenerator {
	g := &IDGenerator{}
	g.Reset(prefix)
	return g
}

// Next issues the following identifier.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.issued++
	return g.prefix + "-" + strconv.FormatUint(g.issued, 10)
}

// Issued reports how many identifiers have been handed out since the last reset.
func (g *IDGenerator) Issued() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.issued
}

// Reset restarts the sequence under a new prefix.
func (g *IDGenerator) Reset(prefix string) {
	if prefix == "" {
		prefix = "id"
	}
	g.mu.Lock()
	g.prefix = prefix
	g.issued = 0
	g.mu.Unlock()
}

// NextFunc adapts the generator to the token and link constructor parameters.
// A nil generator yields empty strings.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}
