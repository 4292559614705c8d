// Package raffle implements the deterministic, publicly verifiable
// selection of contestants for a showcase.
//
// The engine has no hidden state and performs no I/O. Given the same
// seed and the same ordered entrant list it always produces the same
// partition, so any third party can recompute the outcome.
package raffle

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Errors returned by Perform.
var (
	ErrNoEntrants      = errors.New("raffle: entrant list is empty")
	ErrInvalidCapacity = errors.New("raffle: capacity must be at least 1")
)

// Entrant is one submission competing for a spot in the showcase.
// Order in the input slice matters: the derived random number for an
// entrant depends on its index.
type Entrant struct {
	ID   string
	Name string
}

// Outcome is the raffle result for a single entrant.
type Outcome struct {
	ID       string  `json:"id"`
	Name     string  `json:"name,omitempty"`
	Position int     `json:"position"` // 1-based within its partition
	Number   float64 `json:"number"`   // derived random value in [0,1)
}

// AuditEntry records the derived number for one entrant at its input
// index, for public publication alongside the seed.
type AuditEntry struct {
	ID     string  `json:"id"`
	Index  int     `json:"index"`
	Number float64 `json:"number"`
}

// Result is the full outcome of a raffle run.
type Result struct {
	Selected   []Outcome    `json:"selected"`
	Waitlist   []Outcome    `json:"waitlist"`
	Seed       string       `json:"seed"`
	ExecutedAt time.Time    `json:"executed_at"`
	Audit      []AuditEntry `json:"audit"`
}

// GenerateSeed produces a new public seed: the current unix
// milliseconds joined with 8 bytes of cryptographically strong
// randomness. The seed is immutable once attached to a showcase.
func GenerateSeed() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform RNG is broken;
		// there is no meaningful fallback.
		panic(fmt.Sprintf("raffle: crypto/rand unavailable: %v", err))
	}
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + hex.EncodeToString(buf)
}

// Number derives the pseudo-random value in [0,1) for the entrant at
// index i. The formula is fixed for cross-implementation verification:
// the first 4 bytes of SHA-256(seed + "-" + i), read as a big-endian
// unsigned 32-bit integer, divided by 2^32.
func Number(seed string, i int) float64 {
	sum := sha256.Sum256([]byte(seed + "-" + strconv.Itoa(i)))
	return float64(binary.BigEndian.Uint32(sum[:4])) / (1 << 32)
}

// Perform partitions entrants into selected and waitlisted sets.
// Entrants are ordered by their derived random number ascending; the
// first capacity entries are selected, the rest waitlisted. Passing an
// empty seed generates a fresh one.
func Perform(entrants []Entrant, capacity int, seed string) (*Result, error) {
	if len(entrants) == 0 {
		return nil, ErrNoEntrants
	}
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	if seed == "" {
		seed = GenerateSeed()
	}

	type drawn struct {
		entrant Entrant
		index   int
		number  float64
	}

	draws := make([]drawn, len(entrants))
	audit := make([]AuditEntry, len(entrants))
	for i, e := range entrants {
		n := Number(seed, i)
		draws[i] = drawn{entrant: e, index: i, number: n}
		audit[i] = AuditEntry{ID: e.ID, Index: i, Number: n}
	}

	// Stable keeps input order for tied numbers. Ties are close to
	// impossible with a 32-bit fraction but must not break ordering.
	sort.SliceStable(draws, func(a, b int) bool {
		return draws[a].number < draws[b].number
	})

	if capacity > len(draws) {
		capacity = len(draws)
	}

	executedAt := time.Now().UTC()
	result := &Result{
		Seed:       seed,
		ExecutedAt: executedAt,
		Audit:      audit,
		Selected:   make([]Outcome, 0, capacity),
		Waitlist:   make([]Outcome, 0, len(draws)-capacity),
	}

	for i, d := range draws {
		o := Outcome{ID: d.entrant.ID, Name: d.entrant.Name, Number: d.number}
		if i < capacity {
			o.Position = i + 1
			result.Selected = append(result.Selected, o)
		} else {
			o.Position = i - capacity + 1
			result.Waitlist = append(result.Waitlist, o)
		}
	}

	return result, nil
}

// Verify recomputes the raffle for the given seed and reports whether
// the recomputed selected-ID sequence exactly matches the claimed one,
// order included.
func Verify(entrants []Entrant, seed string, capacity int, expectedSelectedIDs []string) (bool, error) {
	result, err := Perform(entrants, capacity, seed)
	if err != nil {
		return false, err
	}
	if len(result.Selected) != len(expectedSelectedIDs) {
		return false, nil
	}
	for i, o := range result.Selected {
		if o.ID != expectedSelectedIDs[i] {
			return false, nil
		}
	}
	return true, nil
}
