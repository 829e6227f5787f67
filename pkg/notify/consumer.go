package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Shahir-collab/bus-routes-website/pkg/ctdf"
	"github.com/adjust/rmq/v5"
	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
)

const sendTimeout = 10 * time.Second

type NotifyBatchConsumer struct {
	Push *PushManager
}

func NewNotifyBatchConsumer(push *PushManager) *NotifyBatchConsumer {
	return &NotifyBatchConsumer{Push: push}
}

func (c *NotifyBatchConsumer) Consume(batch rmq.Deliveries) {
	for _, delivery := range batch {
		if err := c.handle(delivery.Payload()); err != nil {
			log.Error().Err(err).Msg("Failed to send alert notification")

			if err := delivery.Reject(); err != nil {
				log.Error().Err(err).Msg("Failed to reject delivery")
			}
			continue
		}

		if err := delivery.Ack(); err != nil {
			log.Error().Err(err).Msg("Failed to ack delivery")
		}
	}
}

func (c *NotifyBatchConsumer) handle(payload string) error {
	var alert ctdf.Alert
	if err := json.Unmarshal([]byte(payload), &alert); err != nil {
		return fmt.Errorf("notify: decode alert: %w", err)
	}

	log.Debug().Msg(pretty.Sprint(alert))

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	return c.Push.SendAlert(ctx, &alert)
}
