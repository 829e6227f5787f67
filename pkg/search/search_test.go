package search

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Shahir-collab/bus-routes-website/pkg/ctdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	calls atomic.Int32
	buses []ctdf.Bus
	err   error
}

func (f *fakeBackend) SearchBuses(ctx context.Context, startStation string, endStation string, departure string) ([]ctdf.Bus, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.buses, nil
}

func departingAt(hour int, minute int) time.Time {
	return time.Date(2024, 5, 14, hour, minute, 0, 0, time.UTC)
}

func mixedBuses() []ctdf.Bus {
	return []ctdf.Bus{
		{ID: 1, Number: "R1", Type: ctdf.BusTypeRegular, DepartureTime: departingAt(7, 30)},
		{ID: 2, Number: "F1", Type: ctdf.BusTypeFast, DepartureTime: departingAt(8, 0)},
		{ID: 3, Number: "S1", Type: ctdf.BusTypeSuperfast, DepartureTime: departingAt(9, 15)},
		{ID: 4, Number: "F2", Type: ctdf.BusTypeFast, DepartureTime: departingAt(10, 45)},
		{ID: 5, Number: "R2", Type: ctdf.BusTypeRegular, DepartureTime: departingAt(12, 0)},
	}
}

func ids(buses []ctdf.Bus) []int {
	result := []int{}
	for _, bus := range buses {
		result = append(result, bus.ID)
	}
	return result
}

func clock(t *testing.T, value string) *time.Time {
	criteria, err := ParseCriteria("", value)
	require.NoError(t, err)
	return criteria.MinDepartureTime
}

func TestApplyFilterAllIsIdentity(t *testing.T) {
	base := mixedBuses()

	assert.Equal(t, base, ApplyFilter(base, AllCriteria()))
	assert.Equal(t, base, ApplyFilter(base, Criteria{}))
}

func TestApplyFilterIsIdempotent(t *testing.T) {
	base := mixedBuses()
	criteria := Criteria{BusType: ctdf.BusTypeFast, MinDepartureTime: clock(t, "09:00")}

	once := ApplyFilter(base, criteria)
	twice := ApplyFilter(once, criteria)

	assert.Equal(t, once, twice)
	assert.Equal(t, []int{4}, ids(once))
}

func TestApplyFilterByType(t *testing.T) {
	assert.Equal(t, []int{2, 4}, ids(ApplyFilter(mixedBuses(), Criteria{BusType: ctdf.BusTypeFast})))
	assert.Equal(t, []int{3}, ids(ApplyFilter(mixedBuses(), Criteria{BusType: ctdf.BusTypeSuperfast})))
}

func TestApplyFilterByDepartureTime(t *testing.T) {
	criteria := Criteria{BusType: ctdf.BusTypeAll, MinDepartureTime: clock(t, "09:15")}

	assert.Equal(t, []int{3, 4, 5}, ids(ApplyFilter(mixedBuses(), criteria)))
}

func TestApplyFilterUsesEachBusDate(t *testing.T) {
	base := []ctdf.Bus{
		{ID: 1, Type: ctdf.BusTypeFast, DepartureTime: time.Date(2024, 5, 14, 8, 0, 0, 0, time.UTC)},
		{ID: 2, Type: ctdf.BusTypeFast, DepartureTime: time.Date(2024, 5, 15, 8, 0, 0, 0, time.UTC)},
		{ID: 3, Type: ctdf.BusTypeFast, DepartureTime: time.Date(2024, 5, 15, 6, 0, 0, 0, time.UTC)},
	}

	criteria := Criteria{MinDepartureTime: clock(t, "07:00")}

	assert.Equal(t, []int{1, 2}, ids(ApplyFilter(base, criteria)))
}

func TestApplyFilterLeavesBaseAlone(t *testing.T) {
	base := mixedBuses()
	ApplyFilter(base, Criteria{BusType: ctdf.BusTypeFast})

	assert.Equal(t, mixedBuses(), base)
}

func TestParseCriteria(t *testing.T) {
	criteria, err := ParseCriteria("superfast", "18:30")
	require.NoError(t, err)
	assert.Equal(t, ctdf.BusTypeSuperfast, criteria.BusType)
	assert.Equal(t, 18, criteria.MinDepartureTime.Hour())
	assert.Equal(t, 30, criteria.MinDepartureTime.Minute())

	_, err = ParseCriteria("hovercraft", "")
	assert.Error(t, err)

	_, err = ParseCriteria("all", "6pm")
	assert.Error(t, err)
}

func TestQueryValidation(t *testing.T) {
	assert.NoError(t, Query{StartStation: "1", EndStation: "2", Time: "08:00"}.Validate())
	assert.ErrorIs(t, Query{StartStation: "1", Time: "08:00"}.Validate(), ErrInvalidQuery)
	assert.ErrorIs(t, Query{StartStation: "1", EndStation: "2", Time: "8am"}.Validate(), ErrInvalidQuery)
}

func TestPipelineFiltersWithoutNetwork(t *testing.T) {
	backend := &fakeBackend{buses: mixedBuses()}
	pipeline := NewPipeline(backend)

	assert.False(t, pipeline.ShowFilters())

	results, err := pipeline.Search(context.Background(), Query{StartStation: "1", EndStation: "2", Time: "07:00"})
	require.NoError(t, err)
	assert.Len(t, results, 5)
	assert.True(t, pipeline.ShowFilters())

	fast := pipeline.SetCriteria(Criteria{BusType: ctdf.BusTypeFast})
	assert.Equal(t, []int{2, 4}, ids(fast))
	for _, bus := range fast {
		assert.Equal(t, ctdf.BusTypeFast, bus.Type)
	}

	assert.Equal(t, int32(1), backend.calls.Load())

	all := pipeline.SetCriteria(AllCriteria())
	assert.Len(t, all, 5)
	assert.Equal(t, int32(1), backend.calls.Load())
}

func TestPipelineKeepsCriteriaAcrossSearches(t *testing.T) {
	backend := &fakeBackend{buses: mixedBuses()}
	pipeline := NewPipeline(backend)
	pipeline.SetCriteria(Criteria{BusType: ctdf.BusTypeRegular})

	results, err := pipeline.Search(context.Background(), Query{StartStation: "1", EndStation: "2", Time: "07:00"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5}, ids(results))
}

func TestPipelineFailureKeepsBase(t *testing.T) {
	backend := &fakeBackend{buses: mixedBuses()}
	pipeline := NewPipeline(backend)

	_, err := pipeline.Search(context.Background(), Query{StartStation: "1", EndStation: "2", Time: "07:00"})
	require.NoError(t, err)

	failure := errors.New("backend down")
	backend.err = failure

	_, err = pipeline.Search(context.Background(), Query{StartStation: "3", EndStation: "4", Time: "07:00"})
	assert.ErrorIs(t, err, failure)
	assert.Len(t, pipeline.Filtered(), 5)
	assert.True(t, pipeline.ShowFilters())

	query, ok := pipeline.LastQuery()
	assert.True(t, ok)
	assert.Equal(t, "1", query.StartStation)
}

func TestPipelineRejectsInvalidQueryWithoutNetwork(t *testing.T) {
	backend := &fakeBackend{buses: mixedBuses()}
	pipeline := NewPipeline(backend)

	_, err := pipeline.Search(context.Background(), Query{StartStation: "1", EndStation: "2"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
	assert.Zero(t, backend.calls.Load())
}

func TestPipelineEmptyResultHidesFilters(t *testing.T) {
	pipeline := NewPipeline(&fakeBackend{buses: []ctdf.Bus{}})

	results, err := pipeline.Search(context.Background(), Query{StartStation: "1", EndStation: "2", Time: "23:00"})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.False(t, pipeline.ShowFilters())
}

func TestPipelineResultsAreCopies(t *testing.T) {
	pipeline := NewPipeline(&fakeBackend{buses: mixedBuses()})

	results, err := pipeline.Search(context.Background(), Query{StartStation: "1", EndStation: "2", Time: "07:00"})
	require.NoError(t, err)

	results[0].Number = "changed"

	filtered := pipeline.Filtered()
	assert.Equal(t, "R1", filtered[0].Number)
	assert.Equal(t, departingAt(7, 30), filtered[0].DepartureTime)
}
