package votes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Engine wires the vote store, type registry and event sink, and hands out
// Voter and Voteable capabilities bound to individual entities
type Engine struct {
	store    Store
	registry *TypeRegistry
	events   EventSink
	logger   *slog.Logger
}

// NewEngine creates a new vote engine. events and logger may be nil.
func NewEngine(store Store, registry *TypeRegistry, events EventSink, logger *slog.Logger) (*Engine, error) {
	if store == nil {
		return nil, errors.New("vote store is required")
	}
	if registry == nil || len(registry.Tags(RoleVoter)) == 0 {
		return nil, fmt.Errorf("%w: no voter types registered", ErrUnknownType)
	}
	if len(registry.Tags(RoleSubject)) == 0 {
		return nil, fmt.Errorf("%w: no subject types registered", ErrUnknownType)
	}
	if events == nil {
		events = NopSink
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:    store,
		registry: registry,
		events:   events,
		logger:   logger,
	}, nil
}

// Registry returns the type registry the engine validates references with
func (e *Engine) Registry() *TypeRegistry {
	return e.registry
}

// Voter returns the voter capability of entity.
// Fails with ErrUnknownType when the entity's type tag is not a voter type.
func (e *Engine) Voter(entity Entity) (*Voter, error) {
	if entity == nil {
		return nil, ErrInvalidRef
	}
	ref := entity.VoteRef()
	if err := e.registry.RequireVoter(ref); err != nil {
		return nil, err
	}
	return &Voter{
		ref:      ref,
		store:    e.store,
		registry: e.registry,
		events:   e.events,
		logger:   e.logger,
	}, nil
}

// Voteable returns the voteable capability of entity, with an empty
// aggregate cache.
// Fails with ErrUnknownType when the entity's type tag is not a subject type.
func (e *Engine) Voteable(entity Entity) (*Voteable, error) {
	if entity == nil {
		return nil, ErrInvalidRef
	}
	ref := entity.VoteRef()
	if err := e.registry.RequireSubject(ref); err != nil {
		return nil, err
	}
	v := &Voteable{
		ref:      ref,
		store:    e.store,
		registry: e.registry,
		logger:   e.logger,
	}
	v.cache = NewAggregateCache(v.computeAggregate)
	return v, nil
}

// LoadAggregates fills the aggregate caches of many voteables with one grouped
// query per kind and subject type. All kinds are loaded when none are given.
// Existing cached values are overwritten.
func (e *Engine) LoadAggregates(ctx context.Context, voteables []*Voteable, kinds ...Aggregate) error {
	if len(voteables) == 0 {
		return nil
	}
	if len(kinds) == 0 {
		kinds = AllAggregates()
	}

	byType := make(map[string][]*Voteable)
	var order []string
	for _, v := range voteables {
		if v == nil {
			continue
		}
		if _, seen := byType[v.ref.Type]; !seen {
			order = append(order, v.ref.Type)
		}
		byType[v.ref.Type] = append(byType[v.ref.Type], v)
	}

	for _, subjectType := range order {
		group := byType[subjectType]
		ids := make([]string, 0, len(group))
		for _, v := range group {
			ids = append(ids, v.ref.ID)
		}

		for _, kind := range kinds {
			if !kind.valid() {
				return fmt.Errorf("unknown aggregate %d", int(kind))
			}

			var values map[string]int64
			var err error
			if kind.IsSum() {
				values, err = e.store.SumBySubjects(ctx, subjectType, ids, kind.Sign())
			} else {
				values, err = e.store.CountBySubjects(ctx, subjectType, ids, kind.Sign())
			}
			if err != nil {
				return fmt.Errorf("failed to preload %s for %s: %w", kind, subjectType, err)
			}

			for _, v := range group {
				v.cache.Set(kind, values[v.ref.ID])
			}
		}
	}

	e.logger.Debug("aggregates preloaded",
		"subjects", len(voteables),
		"kinds", len(kinds))

	return nil
}

// FilterSubjects applies scope to subjects, keeping their order.
// Each subject type costs one store round-trip.
func (e *Engine) FilterSubjects(ctx context.Context, subjects []Ref, scope Scope) ([]Ref, error) {
	if err := scope.Voter.Validate(); err != nil {
		return nil, err
	}

	// A voter of an unregistered type cannot have voted on anything
	if !e.registry.IsVoter(scope.Voter.Type) {
		if scope.Negated {
			return append([]Ref(nil), subjects...), nil
		}
		return []Ref{}, nil
	}

	idsByType := make(map[string][]string)
	for _, s := range subjects {
		idsByType[s.Type] = append(idsByType[s.Type], s.ID)
	}

	voted := make(map[Ref]bool, len(subjects))
	for subjectType, ids := range idsByType {
		matched, err := e.store.VotedSubjectIDs(ctx, scope.Voter, subjectType, ids, scope.Sign)
		if err != nil {
			return nil, fmt.Errorf("failed to filter %s subjects: %w", subjectType, err)
		}
		for id, ok := range matched {
			if ok {
				voted[Ref{Type: subjectType, ID: id}] = true
			}
		}
	}

	result := make([]Ref, 0, len(subjects))
	for _, s := range subjects {
		if voted[s] != scope.Negated {
			result = append(result, s)
		}
	}
	return result, nil
}
