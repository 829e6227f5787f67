package consumer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Shahir-collab/bus-routes-website/pkg/redis_client"
	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
)

const defaultStatsAddress = ":3333"

type RedisConsumer struct {
	QueueName string

	NumberConsumers int
	BatchSize       int

	Timeout time.Duration

	// StatsAddress is where the queue stats and health endpoints listen, empty disables them
	StatsAddress string

	Consumer rmq.BatchConsumer

	statsServer *http.Server
}

func (c *RedisConsumer) Setup() error {
	if redis_client.QueueConnection == nil {
		return errors.New("consumer: redis queue connection not open")
	}

	if err := c.startConsumers(); err != nil {
		return err
	}

	if c.StatsAddress != "" {
		c.startStatsServer()
	}

	return nil
}

func (c *RedisConsumer) startConsumers() error {
	// Run the background consumers
	log.Info().Str("queue", c.QueueName).Msg("Starting consumers")

	queue, err := redis_client.QueueConnection.OpenQueue(c.QueueName)
	if err != nil {
		return fmt.Errorf("consumer: open %s: %w", c.QueueName, err)
	}
	if err := queue.StartConsuming(int64(c.NumberConsumers*c.BatchSize), 1*time.Second); err != nil {
		return fmt.Errorf("consumer: start %s: %w", c.QueueName, err)
	}

	for i := 0; i < c.NumberConsumers; i++ {
		if err := c.startQueueConsumer(queue, i); err != nil {
			return err
		}
	}

	return nil
}

func (c *RedisConsumer) startQueueConsumer(queue rmq.Queue, id int) error {
	log.Info().Msgf("Starting %s consumer %d", c.QueueName, id)

	if _, err := queue.AddBatchConsumer(fmt.Sprintf("%s-%d", c.QueueName, id), int64(c.BatchSize), c.Timeout, c.Consumer); err != nil {
		return fmt.Errorf("consumer: add %s consumer %d: %w", c.QueueName, id, err)
	}

	return nil
}

func (c *RedisConsumer) startStatsServer() {
	endpoint := fmt.Sprintf("/%s/stats", c.QueueName)

	mux := http.NewServeMux()
	mux.Handle(endpoint, NewStatsHandler(redis_client.QueueConnection))
	mux.Handle("/health", NewHealthHandler())

	c.statsServer = &http.Server{Addr: c.StatsAddress, Handler: mux}

	log.Info().Msgf("Stats server listening on http://localhost%s%s", c.StatsAddress, endpoint)
	go func() {
		if err := c.statsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Stats server stopped")
		}
	}()
}

func (c *RedisConsumer) Shutdown() {
	if c.statsServer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.statsServer.Shutdown(ctx)
}
