// Package rng isolates every source of non-determinism in the simulation
// (integrity decay, generated ids) behind a small interface so tests can
// supply a fixed seed.
package rng

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"time"
)

// Source is the randomness provider consumed by the reducer and the crew
// factory.
type Source interface {
	// Float64 returns a value in [0,1).
	Float64() float64
	// Intn returns a value in [0,n). It returns 0 when n <= 0.
	Intn(n int) int
}

// SplitMix64 is a small deterministic generator. It is safe for concurrent use.
type SplitMix64 struct {
	mu    sync.Mutex
	state uint64
}

var _ Source = (*SplitMix64)(nil)

// NewSeeded returns a deterministic source for the given seed.
func NewSeeded(seed uint64) *SplitMix64 {
	return &SplitMix64{state: seed}
}

// NewFromString derives a seed from arbitrary text using SHA256.
func NewFromString(s string) *SplitMix64 {
	h := sha256.Sum256([]byte(s))
	return NewSeeded(binary.LittleEndian.Uint64(h[:8]))
}

// NewRandom returns a source seeded from the wall clock.
func NewRandom() *SplitMix64 {
	return NewSeeded(uint64(time.Now().UnixNano()))
}

func (s *SplitMix64) next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state += 0x9E3779B97F4A7C15
	z := s.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

func (s *SplitMix64) Float64() float64 {
	return float64(s.next()>>11) / (1 << 53)
}

func (s *SplitMix64) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(s.next() % uint64(n))
}

// Fixed always returns the same float. Intn scales that float into range.
// Useful for pinning the integrity decay in tests.
type Fixed float64

func (f Fixed) Float64() float64 { return float64(f) }

func (f Fixed) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	v := int(float64(f) * float64(n))
	if v >= n {
		v = n - 1
	}
	if v < 0 {
		v = 0
	}
	return v
}
