package homophone

import (
	"context"
	"encoding/json"
	"math"
	"slices"

	"github.com/MrWong99/homophoner/internal/observe"
	"github.com/MrWong99/homophoner/pkg/provider/vectors"
)

// Score is a candidate and its similarity to the context. Out-of-vocabulary
// candidates score negative infinity.
type Score struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

type scoreJSON struct {
	Word  string   `json:"word"`
	Score *float64 `json:"score"`
}

// MarshalJSON writes non-finite scores as null; JSON has no infinity.
func (s Score) MarshalJSON() ([]byte, error) {
	out := scoreJSON{Word: s.Word}
	if !math.IsInf(s.Score, 0) && !math.IsNaN(s.Score) {
		out.Score = &s.Score
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a null score as negative infinity.
func (s *Score) UnmarshalJSON(data []byte) error {
	var in scoreJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Word, s.Score = in.Word, math.Inf(-1)
	if in.Score != nil {
		s.Score = *in.Score
	}
	return nil
}

// Ranking is the result of [Scorer.Rank].
type Ranking struct {
	// Best is the chosen candidate.
	Best string

	// Scored is false when the context carried no usable signal and Best is
	// simply the first candidate.
	Scored bool

	// Scores lists every candidate, best first. Empty when Scored is false.
	Scores []Score
}

// Scorer ranks candidates by semantic similarity to a context. The zero
// value is ready to use.
type Scorer struct{}

// Rank picks the candidate closest in meaning to contextText under model.
// It never fails: lookup errors count as out-of-vocabulary, a context
// without in-vocabulary tokens yields the first candidate, and ties keep
// candidate order. candidates must not be empty.
func (Scorer) Rank(ctx context.Context, model vectors.Model, candidates []string, contextText string) Ranking {
	if len(candidates) == 0 {
		return Ranking{}
	}

	cv := contextVector(ctx, model, Tokenize(contextText))
	if cv == nil {
		return Ranking{Best: candidates[0]}
	}

	scores := make([]Score, len(candidates))
	for i, c := range candidates {
		scores[i] = Score{Word: c, Score: math.Inf(-1)}
		vec, ok := lookup(ctx, model, c)
		if !ok {
			continue
		}
		if len(vec) != len(cv) {
			observe.Logger(ctx).Warn("treating candidate with mismatched dimensions as out of vocabulary",
				"candidate", c, "dims", len(vec), "want", len(cv))
			continue
		}
		scores[i].Score = Cosine(vec, cv)
	}
	slices.SortStableFunc(scores, func(a, b Score) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	return Ranking{Best: scores[0].Word, Scored: true, Scores: scores}
}

// contextVector returns the element-wise mean of the vectors of all
// in-vocabulary tokens, or nil when there are none.
func contextVector(ctx context.Context, model vectors.Model, tokens []string) []float64 {
	var (
		sum []float64
		n   int
	)
	for _, t := range tokens {
		vec, ok := lookup(ctx, model, t)
		if !ok {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(vec))
		}
		if len(vec) != len(sum) {
			observe.Logger(ctx).Warn("skipping context token with mismatched dimensions",
				"token", t, "dims", len(vec), "want", len(sum))
			continue
		}
		for i, v := range vec {
			sum[i] += float64(v)
		}
		n++
	}
	if n == 0 {
		return nil
	}
	for i := range sum {
		sum[i] /= float64(n)
	}
	return sum
}

func lookup(ctx context.Context, model vectors.Model, word string) ([]float32, bool) {
	vec, ok, err := model.Lookup(ctx, word)
	if err != nil {
		observe.Logger(ctx).Warn("vector lookup failed, treating word as out of vocabulary",
			"word", word, "model", model.ModelID(), "err", err)
		return nil, false
	}
	return vec, ok && len(vec) > 0
}

// Float is the element type accepted by [Cosine].
type Float interface {
	~float32 | ~float64
}

// Cosine returns the cosine similarity of a and b: their dot product divided
// by the product of their norms, or exactly 0 when either norm is zero or the
// lengths differ. Accumulation is done in float64.
func Cosine[A, B Float](a []A, b []B) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	denom := math.Sqrt(na) * math.Sqrt(nb)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
