package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterLeavesSourceUntouched(t *testing.T) {
	source := []int{1, 2, 3, 4, 5}

	even := Filter(source, func(i int) bool { return i%2 == 0 })

	assert.Equal(t, []int{2, 4}, even)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, source)
}

func TestInPlaceFilter(t *testing.T) {
	values := []string{"a", "", "b", ""}

	InPlaceFilter(&values, func(s string) bool { return s != "" })

	assert.Equal(t, []string{"a", "b"}, values)
}

func TestAddTimeToDate(t *testing.T) {
	clock, err := ParseClockTime("14:30")
	require.NoError(t, err)

	date := time.Date(2024, 3, 9, 8, 15, 0, 0, time.UTC)
	combined := AddTimeToDate(date, clock)

	assert.Equal(t, time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC), combined)
}

func TestParseClockTimeRejectsGarbage(t *testing.T) {
	_, err := ParseClockTime("2pm")
	assert.Error(t, err)
}

func TestTrimString(t *testing.T) {
	assert.Equal(t, "short", TrimString("short", 10))
	assert.Equal(t, "a long...", TrimString("a long message", 9))
}

func TestGetEnvironmentVariablesStripsPrefix(t *testing.T) {
	t.Setenv("BUSTRACKER_API_URL", "http://example.test")
	t.Setenv("UNRELATED_VALUE", "x")

	env := GetEnvironmentVariables()

	assert.Equal(t, "http://example.test", env["API_URL"])
	_, present := env["UNRELATED_VALUE"]
	assert.False(t, present)
}
