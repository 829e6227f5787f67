package elastic_client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Shahir-collab/bus-routes-website/pkg/busapi"
	"github.com/Shahir-collab/bus-routes-website/pkg/ctdf"
	"github.com/rs/zerolog/log"
)

type PollErrorEvent struct {
	Timestamp time.Time

	Task  string
	Error string

	StatusCode int
	Temporary  bool
}

type AlertEvent struct {
	Timestamp time.Time

	Alert *ctdf.Alert
}

func monthlyIndex(prefix string, t time.Time) string {
	return fmt.Sprintf("%s-%d-%02d", prefix, t.Year(), t.Month())
}

// ReportPollError records a failed poll tick. It has the poller.ErrorReporter signature.
func ReportPollError(task string, err error) {
	if Client == nil || err == nil {
		return
	}

	event := PollErrorEvent{
		Timestamp: time.Now(),
		Task:      task,
		Error:     err.Error(),
		Temporary: true,
	}

	var fetchErr *busapi.FetchError
	if errors.As(err, &fetchErr) {
		event.StatusCode = fetchErr.StatusCode
		event.Temporary = fetchErr.Temporary()
	}

	indexEvent(monthlyIndex("bustracker-poll-errors", event.Timestamp), event)
}

func ReportAlert(alert *ctdf.Alert) {
	if Client == nil || alert == nil {
		return
	}

	event := AlertEvent{
		Timestamp: time.Now(),
		Alert:     alert,
	}

	indexEvent(monthlyIndex("bustracker-alerts", event.Timestamp), event)
}

func indexEvent(indexName string, event any) {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("indexName", indexName).Msg("Failed to encode event")
		return
	}

	IndexRequest(indexName, bytes.NewReader(eventJSON))
}
