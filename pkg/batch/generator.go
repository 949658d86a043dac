// Package batch materializes ordered question queues for one conversation
// pass, sampling a bounded subset per category.
package batch

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/tinyland-inc/artbot/pkg/catalog"
	"github.com/tinyland-inc/artbot/pkg/logger"
	"github.com/tinyland-inc/artbot/pkg/session"
)

// Generator samples questions per category and persists the resulting
// queue into the participant's session.
type Generator struct {
	catalog catalog.Catalog
	rng     *rand.Rand
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand injects a deterministic random source, for tests.
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) { g.rng = rng }
}

func NewGenerator(cat catalog.Catalog, opts ...Option) *Generator {
	g := &Generator{
		catalog: cat,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate samples each category of the given type, unions the selected
// ids, fetches the questions ordered by position, stores the queue under
// the participant's batch key and returns it. An empty category set yields
// an empty queue.
func (g *Generator) Generate(ctx context.Context, scope *session.Scope, categoryType string) ([]catalog.Question, error) {
	stats, err := g.catalog.FetchCategoryStats(ctx, categoryType)
	if err != nil {
		return nil, fmt.Errorf("generating batch: %w", err)
	}

	var ids []int64
	seen := make(map[int64]bool)
	for _, s := range stats {
		for _, id := range g.sample(s) {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	questions, err := g.catalog.FetchQuestions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("generating batch: %w", err)
	}

	if err := scope.SetBatch(ctx, questions); err != nil {
		return nil, err
	}

	logger.DebugCF("batch", "Generated question batch", map[string]any{
		"category_type": categoryType,
		"categories":    len(stats),
		"questions":     len(questions),
	})

	return questions, nil
}

// sample draws the category's ids under its attempt cap: all of them when
// the cap covers the candidate set, a uniform draw without replacement
// otherwise. A non-positive cap selects nothing.
func (g *Generator) sample(s catalog.CategoryStats) []int64 {
	if s.Attempt <= 0 || len(s.CandidateIDs) == 0 {
		return nil
	}
	if len(s.CandidateIDs) <= s.Attempt {
		return s.CandidateIDs
	}

	picked := make([]int64, len(s.CandidateIDs))
	copy(picked, s.CandidateIDs)
	g.rng.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})
	return picked[:s.Attempt]
}
