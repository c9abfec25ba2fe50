package formstate

import (
	"strconv"

	"github.com/google/uuid"
)

// Sequence is the default IDSource: deterministic "id-1", "id-2", …
// counters scoped to one engine instance. Not safe for concurrent use,
// matching the engine's single-owner contract.
type Sequence struct {
	prefix string
	next   int
}

// NewSequence returns a Sequence starting at 1 with the "id-" prefix.
func NewSequence() *Sequence {
	return &Sequence{prefix: "id-", next: 1}
}

// NextID returns the next id in the sequence.
func (s *Sequence) NextID() string {
	id := s.prefix + strconv.Itoa(s.next)
	s.next++
	return id
}

// UUIDSource generates random UUID ids, for hosts that merge response
// fragments produced by several engine instances.
type UUIDSource struct{}

// NextID returns a random UUID string.
func (UUIDSource) NextID() string {
	return uuid.NewString()
}
