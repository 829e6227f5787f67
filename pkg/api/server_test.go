package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Shahir-collab/bus-routes-website/pkg/api/fixtures"
	"github.com/Shahir-collab/bus-routes-website/pkg/ctdf"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, auth fiber.Handler) (*fiber.App, *fixtures.Dataset) {
	t.Helper()

	dataset, err := fixtures.Default()
	require.NoError(t, err)

	return NewApp(dataset, auth), dataset
}

func doRequest(t *testing.T, app *fiber.App, request *http.Request) (*http.Response, []byte) {
	t.Helper()

	response, err := app.Test(request, -1)
	require.NoError(t, err)

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	return response, body
}

func get(t *testing.T, app *fiber.App, path string) (*http.Response, []byte) {
	return doRequest(t, app, httptest.NewRequest(http.MethodGet, path, nil))
}

func errorBody(t *testing.T, body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload.Error
}

func TestDashboardStats(t *testing.T) {
	app, dataset := newTestApp(t, nil)

	response, body := get(t, app, "/api/admin/dashboard/stats/")
	require.Equal(t, http.StatusOK, response.StatusCode)

	var stats ctdf.DashboardStats
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 5, stats.TotalBuses)
	assert.Equal(t, 1, stats.UnresolvedAlerts)

	dataset.SetStats(ctdf.DashboardStats{TotalBuses: 12})
	_, body = get(t, app, "/api/admin/dashboard/stats/")
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 12, stats.TotalBuses)
}

func TestBusDetailsAndLocation(t *testing.T) {
	app, _ := newTestApp(t, nil)

	response, body := get(t, app, "/api/buses/2/")
	require.Equal(t, http.StatusOK, response.StatusCode)

	var bus ctdf.Bus
	require.NoError(t, json.Unmarshal(body, &bus))
	assert.Equal(t, "KA-01-2002", bus.Number)
	assert.Equal(t, ctdf.BusTypeFast, bus.Type)
	assert.Nil(t, bus.CurrentLocation)
	require.Len(t, bus.Stations, 2)
	assert.Nil(t, bus.Stations[0].ArrivalTime)
	assert.Nil(t, bus.Stations[1].DepartureTime)

	response, _ = get(t, app, "/api/buses/2/location/")
	assert.Equal(t, http.StatusOK, response.StatusCode)

	response, body = get(t, app, "/api/buses/1/location/")
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
	assert.Equal(t, "Location not available for this bus", errorBody(t, body))

	response, _ = get(t, app, "/api/buses/99/")
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
}

func TestRouteAndStations(t *testing.T) {
	app, _ := newTestApp(t, nil)

	_, body := get(t, app, "/api/routes/1/")
	var route ctdf.Route
	require.NoError(t, json.Unmarshal(body, &route))
	assert.Len(t, route.Points, 3)

	_, body = get(t, app, "/api/stations/")
	var stations []ctdf.Station
	require.NoError(t, json.Unmarshal(body, &stations))
	assert.Len(t, stations, 4)
}

func TestSearchValidation(t *testing.T) {
	app, _ := newTestApp(t, nil)

	response, body := get(t, app, "/api/buses/search/?startStation=1&endStation=3")
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	assert.Equal(t, "Start station, end station, and time are required", errorBody(t, body))

	response, body = get(t, app, "/api/buses/search/?startStation=1&endStation=3&time=soon")
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	assert.Equal(t, "Invalid time format. Use HH:MM", errorBody(t, body))
}

func TestSearch(t *testing.T) {
	app, _ := newTestApp(t, nil)

	response, body := get(t, app, "/api/buses/search/?startStation=1&endStation=Airport&time=09:00")
	require.Equal(t, http.StatusOK, response.StatusCode)

	var buses []ctdf.Bus
	require.NoError(t, json.Unmarshal(body, &buses))

	var numbers []string
	for _, bus := range buses {
		numbers = append(numbers, bus.Number)
	}
	assert.Equal(t, []string{"KA-01-3003", "KA-01-4004", "KA-01-5005"}, numbers)

	_, body = get(t, app, "/api/buses/search/?startStation=2&endStation=4&time=09:00")
	assert.JSONEq(t, "[]", string(body))
}

func TestLocationUpdate(t *testing.T) {
	app, dataset := newTestApp(t, nil)

	request := httptest.NewRequest(http.MethodPost, "/api/bus/location/update/", strings.NewReader(`{"busId": 1, "latitude": 12.5, "longitude": 77.5, "speed": 30}`))
	request.Header.Set("Content-Type", "application/json")

	response, _ := doRequest(t, app, request)
	require.Equal(t, http.StatusOK, response.StatusCode)

	location, ok := dataset.Location(1)
	require.True(t, ok)
	assert.Equal(t, 12.5, location.Latitude)
	assert.False(t, location.Timestamp.IsZero())

	request = httptest.NewRequest(http.MethodPost, "/api/bus/location/update/", strings.NewReader(`{"busId": 77, "latitude": 1, "longitude": 1}`))
	request.Header.Set("Content-Type", "application/json")
	response, _ = doRequest(t, app, request)
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
}

func TestAlerts(t *testing.T) {
	app, _ := newTestApp(t, nil)

	request := httptest.NewRequest(http.MethodPost, "/api/admin/alerts/", strings.NewReader(`{"busNumber": "KA-01-1001", "alertType": "breakdown", "message": "Flat tyre"}`))
	request.Header.Set("Content-Type", "application/json")
	response, _ := doRequest(t, app, request)
	require.Equal(t, http.StatusCreated, response.StatusCode)

	request = httptest.NewRequest(http.MethodPost, "/api/admin/alerts/", strings.NewReader(`{"alertType": "meteor", "message": "?"}`))
	request.Header.Set("Content-Type", "application/json")
	response, _ = doRequest(t, app, request)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)

	_, body := get(t, app, "/api/admin/alerts/")
	var alerts []ctdf.Alert
	require.NoError(t, json.Unmarshal(body, &alerts))
	require.Len(t, alerts, 3)
	assert.Equal(t, "Flat tyre", alerts[0].Message)
	assert.Equal(t, ctdf.AlertTypeBreakdown, alerts[0].AlertType)
}

func TestTokenMiddleware(t *testing.T) {
	validate := func(ctx context.Context, token string) (interface{}, error) {
		if token == "good-token" {
			return nil, nil
		}
		return nil, errors.New("bad signature")
	}

	app, _ := newTestApp(t, NewTokenMiddleware(validate))

	response, body := get(t, app, "/api/stations/")
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode)
	assert.Equal(t, "Authorization header is required", errorBody(t, body))

	request := httptest.NewRequest(http.MethodGet, "/api/stations/", nil)
	request.Header.Set("Authorization", "Token good-token")
	response, _ = doRequest(t, app, request)
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode)

	request = httptest.NewRequest(http.MethodGet, "/api/stations/", nil)
	request.Header.Set("Authorization", "Bearer forged")
	response, body = doRequest(t, app, request)
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode)
	assert.Equal(t, "Invalid auth token", errorBody(t, body))

	request = httptest.NewRequest(http.MethodGet, "/api/stations/", nil)
	request.Header.Set("Authorization", "Bearer good-token")
	response, _ = doRequest(t, app, request)
	assert.Equal(t, http.StatusOK, response.StatusCode)

	response, _ = get(t, app, "/version")
	assert.Equal(t, http.StatusOK, response.StatusCode)
}

func TestEnsureValidTokenNeedsProject(t *testing.T) {
	_, err := EnsureValidToken("")
	assert.Error(t, err)
}
