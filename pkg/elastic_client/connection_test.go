package elastic_client

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Shahir-collab/bus-routes-website/pkg/busapi"
	"github.com/Shahir-collab/bus-routes-website/pkg/config"
	"github.com/Shahir-collab/bus-routes-website/pkg/ctdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeElasticsearch struct {
	mu    sync.Mutex
	bulks []string
}

func (f *fakeElasticsearch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	if strings.HasSuffix(r.URL.Path, "/_bulk") {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.bulks = append(f.bulks, string(body))
		f.mu.Unlock()

		w.Write([]byte(`{"took":1,"errors":false,"items":[]}`))
		return
	}

	w.Write([]byte(`{"name":"fake","cluster_name":"test","version":{"number":"8.19.0"},"tagline":"You Know, for Search"}`))
}

func (f *fakeElasticsearch) body() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return strings.Join(f.bulks, "")
}

func TestConnectNotConfigured(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(Connect(config.ElasticsearchConfig{}, false))
	assert.False(Enabled())

	assert.ErrorIs(Connect(config.ElasticsearchConfig{}, true), ErrNotConfigured)

	// No client means the reporters are no-ops
	ReportPollError("dashboard.stats", errors.New("boom"))
	ReportAlert(&ctdf.Alert{ID: 1})
	WaitUntilQueueEmpty()
}

func TestReportEvents(t *testing.T) {
	assert := assert.New(t)

	fake := &fakeElasticsearch{}
	server := httptest.NewServer(fake)
	defer server.Close()

	require.NoError(t, Connect(config.ElasticsearchConfig{Address: server.URL}, true))
	assert.True(Enabled())

	ReportPollError("bus.location", &busapi.FetchError{Op: "bus location", StatusCode: http.StatusServiceUnavailable, Message: "down"})
	ReportPollError("dashboard.stats", nil)
	ReportAlert(&ctdf.Alert{ID: 7, BusNumber: "KA-01", AlertType: ctdf.AlertTypeDelay, Message: "Running late"})

	WaitUntilQueueEmpty()
	assert.False(Enabled())

	body := fake.body()
	now := time.Now()
	assert.Contains(body, monthlyIndex("bustracker-poll-errors", now))
	assert.Contains(body, monthlyIndex("bustracker-alerts", now))
	assert.Contains(body, `"Task":"bus.location"`)
	assert.Contains(body, `"StatusCode":503`)
	assert.Contains(body, `"Temporary":true`)
	assert.Contains(body, `"message":"Running late"`)
	assert.NotContains(body, "dashboard.stats")
}

func TestMonthlyIndex(t *testing.T) {
	assert.Equal(t, "bustracker-alerts-2026-03", monthlyIndex("bustracker-alerts", time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)))
}
