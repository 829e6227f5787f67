package notify

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shahir-collab/bus-routes-website/pkg/config"
	"github.com/Shahir-collab/bus-routes-website/pkg/consumer"
	"github.com/Shahir-collab/bus-routes-website/pkg/redis_client"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "notify",
		Usage: "Provides the alert push notification system",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run notify consumers",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "stats-listen",
						Value: ":3333",
						Usage: "address for the queue stats server",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}

					if err := redis_client.Connect(cfg.Redis); err != nil {
						return err
					}

					pushManager := &PushManager{}
					if err := pushManager.Setup(context.Background(), cfg); err != nil {
						return err
					}

					redisConsumer := consumer.RedisConsumer{
						QueueName:       AlertsQueueName,
						NumberConsumers: 2,
						BatchSize:       10,
						Timeout:         2 * time.Second,
						StatsAddress:    c.String("stats-listen"),
						Consumer:        NewNotifyBatchConsumer(pushManager),
					}
					if err := redisConsumer.Setup(); err != nil {
						return err
					}
					defer redisConsumer.Shutdown()

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish

					return nil
				},
			},
		},
	}
}
