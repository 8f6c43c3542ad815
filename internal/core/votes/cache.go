package votes

import (
	"context"
	"fmt"
)

// Aggregate identifies one derived figure of a subject's vote set
type Aggregate int

const (
	VotersCount Aggregate = iota
	UpvotersCount
	DownvotersCount
	SumVotes
	SumUpvotes
	SumDownvotes

	numAggregates
)

// AllAggregates lists every aggregate kind
func AllAggregates() []Aggregate {
	return []Aggregate{VotersCount, UpvotersCount, DownvotersCount, SumVotes, SumUpvotes, SumDownvotes}
}

// Sign returns the partition of votes the aggregate is computed over
func (a Aggregate) Sign() Sign {
	switch a {
	case UpvotersCount, SumUpvotes:
		return Positive
	case DownvotersCount, SumDownvotes:
		return Negative
	default:
		return AnySign
	}
}

// IsSum reports whether the aggregate sums magnitudes rather than counting rows
func (a Aggregate) IsSum() bool {
	return a == SumVotes || a == SumUpvotes || a == SumDownvotes
}

func (a Aggregate) valid() bool {
	return a >= 0 && a < numAggregates
}

func (a Aggregate) String() string {
	switch a {
	case VotersCount:
		return "voters_count"
	case UpvotersCount:
		return "upvoters_count"
	case DownvotersCount:
		return "downvoters_count"
	case SumVotes:
		return "sum_votes"
	case SumUpvotes:
		return "sum_upvotes"
	case SumDownvotes:
		return "sum_downvotes"
	default:
		return fmt.Sprintf("aggregate(%d)", int(a))
	}
}

// AggregateLoader computes one aggregate from the store
type AggregateLoader func(ctx context.Context, kind Aggregate) (int64, error)

// AggregateCache memoizes the aggregates of a single subject instance.
// Values stay put until Load or Invalidate is called; nothing refreshes them
// implicitly, not even votes cast through the same process.
// An AggregateCache is not safe for concurrent use.
type AggregateCache struct {
	load    AggregateLoader
	values  [numAggregates]int64
	present [numAggregates]bool
}

// NewAggregateCache creates an empty cache backed by load
func NewAggregateCache(load AggregateLoader) *AggregateCache {
	return &AggregateCache{load: load}
}

// Get returns the cached value of kind, if any
func (c *AggregateCache) Get(kind Aggregate) (int64, bool) {
	if !kind.valid() || !c.present[kind] {
		return 0, false
	}
	return c.values[kind], true
}

// Set stores a value computed elsewhere, e.g. by a batch preload
func (c *AggregateCache) Set(kind Aggregate, value int64) {
	if !kind.valid() {
		return
	}
	c.values[kind] = value
	c.present[kind] = true
}

// Load recomputes kind from the store and overwrites the cached value
func (c *AggregateCache) Load(ctx context.Context, kind Aggregate) (int64, error) {
	if !kind.valid() {
		return 0, fmt.Errorf("unknown aggregate %d", int(kind))
	}
	if c.load == nil {
		return 0, fmt.Errorf("aggregate cache has no loader")
	}
	value, err := c.load(ctx, kind)
	if err != nil {
		return 0, fmt.Errorf("failed to load %s: %w", kind, err)
	}
	c.Set(kind, value)
	return value, nil
}

// GetOrLoad returns the cached value, loading it on a miss
func (c *AggregateCache) GetOrLoad(ctx context.Context, kind Aggregate) (int64, error) {
	if value, ok := c.Get(kind); ok {
		return value, nil
	}
	return c.Load(ctx, kind)
}

// Invalidate clears the given kinds, or every kind when none are given
func (c *AggregateCache) Invalidate(kinds ...Aggregate) {
	if len(kinds) == 0 {
		c.present = [numAggregates]bool{}
		c.values = [numAggregates]int64{}
		return
	}
	for _, kind := range kinds {
		if kind.valid() {
			c.present[kind] = false
			c.values[kind] = 0
		}
	}
}
