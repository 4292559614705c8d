// Package winner computes the outcome of a showcase's voting phase.
package winner

import (
	"fmt"
	"sort"
	"time"
)

// Candidate is one contestant's vote tally.
type Candidate struct {
	ID    string
	Name  string
	Votes int
}

// Outcome is the result of resolving a showcase's votes. Exactly one
// of Winner or NoWinner is meaningful: a tie or an empty/zero-vote
// field yields NoWinner with a human-readable Reason.
type Outcome struct {
	Winner         *Candidate
	NoWinner       bool
	Tie            bool
	TiedCandidates []Candidate
	TotalVotes     int
	Reason         string
	ResolvedAt     time.Time
}

// Resolve computes the winner from the given tallies. Candidates are
// ordered by votes descending then ID ascending before comparison, so
// tie detection does not depend on storage order.
func Resolve(candidates []Candidate, now time.Time) Outcome {
	out := Outcome{ResolvedAt: now}

	if len(candidates) == 0 {
		out.NoWinner = true
		out.Reason = "no contestants"
		return out
	}

	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].Votes != ranked[b].Votes {
			return ranked[a].Votes > ranked[b].Votes
		}
		return ranked[a].ID < ranked[b].ID
	})

	for _, c := range ranked {
		out.TotalVotes += c.Votes
	}
	if out.TotalVotes == 0 {
		out.NoWinner = true
		out.Reason = "no votes cast"
		return out
	}

	top := ranked[0].Votes
	var tied []Candidate
	for _, c := range ranked {
		if c.Votes != top {
			break
		}
		tied = append(tied, c)
	}

	if len(tied) > 1 {
		out.NoWinner = true
		out.Tie = true
		out.TiedCandidates = tied
		out.Reason = fmt.Sprintf("tie — %d contestants at %d votes", len(tied), top)
		return out
	}

	winner := tied[0]
	out.Winner = &winner
	out.Reason = fmt.Sprintf("won with %d of %d votes", winner.Votes, out.TotalVotes)
	return out
}
