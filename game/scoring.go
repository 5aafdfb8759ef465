package game

import (
	"cmp"
	"math"
	"slices"
	"time"
)

// FailureScoreDelta is charged to the participant whose turn runs out.
const FailureScoreDelta = -10

type Participant struct {
	UserId int64
	Score  int
}

// applyScoreDelta adds delta to the score, flooring at zero, and returns the
// delta that was actually applied.
func (p *Participant) applyScoreDelta(delta int) int {
	before := p.Score
	p.Score = max(p.Score+delta, 0)
	return p.Score - before
}

// SuccessScore rewards long words, late turns in a round and quick answers.
// timeLimit must be positive.
func SuccessScore(wordLength, turnElapsed int, timeLimit, timeLeft time.Duration) int {
	timeLeft = min(max(timeLeft, 0), timeLimit)

	base := math.Pow(float64(5+7*wordLength), 0.74) + 0.88*float64(turnElapsed)
	speed := 1 - float64(timeLimit-timeLeft)/float64(2*timeLimit)

	return int(math.Ceil(2 * base * speed))
}

// Ranking returns participants ordered by descending score. Ties keep their
// turn order. The input is not modified.
func Ranking(participants []Participant) []Participant {
	ranked := slices.Clone(participants)
	slices.SortStableFunc(ranked, func(a, b Participant) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return ranked
}
