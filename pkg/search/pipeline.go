// Package search runs bus searches against the backend and filters the
// results locally, without further network calls.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Shahir-collab/bus-routes-website/pkg/ctdf"
	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
)

var ErrInvalidQuery = errors.New("search: invalid query")

type Query struct {
	StartStation string `validate:"required"`
	EndStation   string `validate:"required"`
	// Time is the earliest departure as HH:MM
	Time string `validate:"required,datetime=15:04"`
}

var validate = validator.New()

func (q Query) Validate() error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	return nil
}

type Backend interface {
	SearchBuses(ctx context.Context, startStation string, endStation string, departure string) ([]ctdf.Bus, error)
}

// Pipeline holds the authoritative base set of the last successful search and
// the criteria currently applied on top of it.
type Pipeline struct {
	backend Backend

	mu       sync.RWMutex
	base     []ctdf.Bus
	criteria Criteria
	filtered []ctdf.Bus
	query    *Query
}

func NewPipeline(backend Backend) *Pipeline {
	return &Pipeline{
		backend:  backend,
		criteria: AllCriteria(),
	}
}

// Search replaces the base set with the backend's results. On failure the
// previous base set is kept and the error is returned for display.
func (p *Pipeline) Search(ctx context.Context, query Query) ([]ctdf.Bus, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	startTime := time.Now()

	buses, err := p.backend.SearchBuses(ctx, query.StartStation, query.EndStation, query.Time)
	if err != nil {
		log.Error().Err(err).
			Str("start", query.StartStation).
			Str("end", query.EndStation).
			Str("time", query.Time).
			Msg("Bus search failed")

		return nil, fmt.Errorf("search: %w", err)
	}

	p.mu.Lock()
	p.base = buses
	p.query = &query
	p.filtered = ApplyFilter(p.base, p.criteria)
	filtered := cloneBuses(p.filtered)
	p.mu.Unlock()

	log.Debug().
		Int("results", len(buses)).
		Int("filtered", len(filtered)).
		Str("Length", time.Since(startTime).String()).
		Msg("Bus search")

	return filtered, nil
}

// SetCriteria re-derives the visible results from the base set.
func (p *Pipeline) SetCriteria(criteria Criteria) []ctdf.Bus {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.criteria = criteria
	p.filtered = ApplyFilter(p.base, criteria)

	return cloneBuses(p.filtered)
}

func (p *Pipeline) Criteria() Criteria {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.criteria
}

func (p *Pipeline) Filtered() []ctdf.Bus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return cloneBuses(p.filtered)
}

func (p *Pipeline) Base() []ctdf.Bus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return cloneBuses(p.base)
}

// LastQuery is the query of the last successful search.
func (p *Pipeline) LastQuery() (Query, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.query == nil {
		return Query{}, false
	}

	return *p.query, true
}

// ShowFilters is true once a search has returned at least one bus.
func (p *Pipeline) ShowFilters() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.base) > 0
}

var timeConverters = []copier.TypeConverter{
	{
		SrcType: time.Time{},
		DstType: time.Time{},
		Fn: func(src interface{}) (interface{}, error) {
			return src.(time.Time), nil
		},
	},
	{
		SrcType: &time.Time{},
		DstType: &time.Time{},
		Fn: func(src interface{}) (interface{}, error) {
			t := src.(*time.Time)
			if t == nil {
				return t, nil
			}
			copied := *t
			return &copied, nil
		},
	},
}

func cloneBuses(buses []ctdf.Bus) []ctdf.Bus {
	if buses == nil {
		return nil
	}

	cloned := make([]ctdf.Bus, 0, len(buses))

	err := copier.CopyWithOption(&cloned, &buses, copier.Option{DeepCopy: true, Converters: timeConverters})
	if err != nil {
		log.Error().Err(err).Msg("Failed to copy search results")
		return append([]ctdf.Bus(nil), buses...)
	}

	return cloned
}
