// Package views holds the page view models. Each view starts its polling
// tasks on Mount, publishes a state snapshot on every change and cancels all
// of its tasks on Unmount.
package views

import (
	"context"
	"time"

	"github.com/Shahir-collab/bus-routes-website/pkg/ctdf"
	"github.com/Shahir-collab/bus-routes-website/pkg/poller"
)

const (
	DefaultDashboardInterval = 30 * time.Second
	DefaultLocationInterval  = 10 * time.Second
)

type DashboardBackend interface {
	DashboardStats(ctx context.Context) (ctdf.DashboardStats, error)
	BusStatuses(ctx context.Context) ([]ctdf.BusStatus, error)
	Alerts(ctx context.Context) ([]ctdf.Alert, error)
}

type BusBackend interface {
	Bus(ctx context.Context, id string) (ctdf.Bus, error)
	Route(ctx context.Context, routeID int) (ctdf.Route, error)
	BusLocation(ctx context.Context, id string) (ctdf.BusLocation, error)
}

type SearchBackend interface {
	Stations(ctx context.Context) ([]ctdf.Station, error)
	SearchBuses(ctx context.Context, startStation string, endStation string, departure string) ([]ctdf.Bus, error)
}

// AlertSink receives unresolved alerts the dashboard has not seen before.
type AlertSink interface {
	PublishAlert(alert ctdf.Alert) error
}

type AlertSinkFunc func(alert ctdf.Alert) error

func (f AlertSinkFunc) PublishAlert(alert ctdf.Alert) error {
	return f(alert)
}

type Option func(*options)

type options struct {
	interval     time.Duration
	fetchTimeout time.Duration
	reporter     poller.ErrorReporter
	alertSink    AlertSink
}

// WithInterval overrides the polling interval of the view's live tasks.
func WithInterval(interval time.Duration) Option {
	return func(o *options) {
		o.interval = interval
	}
}

func WithFetchTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.fetchTimeout = timeout
	}
}

// WithReporter forwards failed poll ticks, e.g. to elastic_client.ReportPollError.
func WithReporter(reporter poller.ErrorReporter) Option {
	return func(o *options) {
		o.reporter = reporter
	}
}

func WithAlertSink(sink AlertSink) Option {
	return func(o *options) {
		o.alertSink = sink
	}
}

func buildOptions(defaultInterval time.Duration, opts []Option) options {
	o := options{interval: defaultInterval}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

func (o options) pollerOptions(onError func(error)) []poller.Option {
	pollerOpts := []poller.Option{poller.WithErrorHandler(onError)}

	if o.fetchTimeout > 0 {
		pollerOpts = append(pollerOpts, poller.WithFetchTimeout(o.fetchTimeout))
	}
	if o.reporter != nil {
		pollerOpts = append(pollerOpts, poller.WithReporter(o.reporter))
	}

	return pollerOpts
}
