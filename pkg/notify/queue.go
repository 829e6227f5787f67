package notify

import (
	"encoding/json"
	"fmt"

	"github.com/Shahir-collab/bus-routes-website/pkg/ctdf"
	"github.com/adjust/rmq/v5"
)

const AlertsQueueName = "alerts-queue"

// QueueAlertSink hands new dashboard alerts to the notify consumers.
type QueueAlertSink struct {
	Queue rmq.Queue
}

func NewQueueAlertSink(connection rmq.Connection) (*QueueAlertSink, error) {
	queue, err := connection.OpenQueue(AlertsQueueName)
	if err != nil {
		return nil, fmt.Errorf("notify: open %s: %w", AlertsQueueName, err)
	}

	return &QueueAlertSink{Queue: queue}, nil
}

func (s *QueueAlertSink) PublishAlert(alert ctdf.Alert) error {
	alertJSON, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	return s.Queue.PublishBytes(alertJSON)
}
