package redis_client

import (
	"context"

	"github.com/Shahir-collab/bus-routes-website/pkg/config"
	"github.com/adjust/rmq/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var Client *redis.Client
var QueueConnection rmq.Connection

const queueConnectionTag = "bustracker"

func Connect(cfg config.RedisConfig) error {
	if cfg.Password == "" {
		Client = redis.NewClient(&redis.Options{
			Addr: cfg.Address,
			DB:   cfg.Database,
		})
	} else {
		Client = redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.Database,
		})
	}

	statusCmd := Client.Ping(context.Background())
	err := statusCmd.Err()
	if err != nil {
		return err
	}

	errChan := make(chan error, 10)
	go logQueueErrors(errChan)

	QueueConnection, err = rmq.OpenConnectionWithRedisClient(queueConnectionTag, Client, errChan)
	if err != nil {
		return err
	}

	log.Info().Str("address", cfg.Address).Int("database", cfg.Database).Msg("Redis client setup")

	return nil
}

func logQueueErrors(errChan <-chan error) {
	for err := range errChan {
		switch err := err.(type) {
		case *rmq.HeartbeatError:
			if err.Count == rmq.HeartbeatErrorLimit {
				log.Error().Err(err).Msg("Redis queue heartbeat failed, consumers stopped")
			} else {
				log.Warn().Err(err).Msg("Redis queue heartbeat error")
			}
		case *rmq.ConsumeError:
			log.Warn().Err(err).Msg("Redis queue consume error")
		default:
			log.Warn().Err(err).Msg("Redis queue error")
		}
	}
}

func Close() {
	if QueueConnection != nil {
		<-QueueConnection.StopAllConsuming()
		QueueConnection = nil
	}

	if Client != nil {
		if err := Client.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis client")
		}
		Client = nil
	}
}
