package quiz

import (
	"math/rand/v2"

	"github.com/pavelanni/picquiz/internal/model"
)

// Shuffler permutes option lists. It is not safe for concurrent use; a
// Session serialises access to its own shuffler.
type Shuffler struct {
	rng *rand.Rand
}

// NewShuffler returns a shuffler seeded from the runtime's random source.
func NewShuffler() *Shuffler {
	return &Shuffler{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededShuffler returns a deterministic shuffler.
func NewSeededShuffler(seed uint64) *Shuffler {
	return &Shuffler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Shuffle permutes opts in place with Fisher-Yates and returns the same
// slice. Callers must treat the input as consumed.
func (s *Shuffler) Shuffle(opts []model.Option) []model.Option {
	for i := len(opts) - 1; i > 0; i-- {
		j := s.rng.IntN(i + 1)
		opts[i], opts[j] = opts[j], opts[i]
	}
	return opts
}

// DisplayOrder returns a shuffled copy of opts, leaving opts untouched.
func (s *Shuffler) DisplayOrder(opts []model.Option) []model.Option {
	out := make([]model.Option, len(opts))
	copy(out, opts)
	return s.Shuffle(out)
}
