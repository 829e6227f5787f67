package views

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shahir-collab/bus-routes-website/pkg/busapi"
	"github.com/Shahir-collab/bus-routes-website/pkg/config"
	"github.com/Shahir-collab/bus-routes-website/pkg/ctdf"
	"github.com/Shahir-collab/bus-routes-website/pkg/elastic_client"
	"github.com/Shahir-collab/bus-routes-website/pkg/guard"
	"github.com/Shahir-collab/bus-routes-website/pkg/identity"
	"github.com/Shahir-collab/bus-routes-website/pkg/notify"
	"github.com/Shahir-collab/bus-routes-website/pkg/redis_client"
	"github.com/Shahir-collab/bus-routes-website/pkg/session"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const sessionReadyTimeout = 15 * time.Second

var ErrFirebaseNotConfigured = errors.New("views: firebase is not configured, set BUSTRACKER_FIREBASE_WEB_API_KEY and BUSTRACKER_FIREBASE_SERVICE_ACCOUNT")

// environment is everything a command needs to show one page.
type environment struct {
	cfg      *config.Config
	provider *identity.Provider
	store    *session.Store
	client   *busapi.Client

	alertSink AlertSink
}

func openEnvironment(c *cli.Context) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if !cfg.FirebaseEnabled() {
		return nil, ErrFirebaseNotConfigured
	}

	env := &environment{cfg: cfg}

	env.provider, err = identity.New(c.Context, cfg.Firebase)
	if err != nil {
		return nil, err
	}
	env.store = session.Init(c.Context, env.provider)

	if err := elastic_client.Connect(cfg.Elasticsearch, false); err != nil {
		log.Warn().Err(err).Msg("Elasticsearch unavailable, poll errors will only be logged")
	}

	clientOptions := []busapi.Option{
		busapi.WithTimeout(cfg.RequestTimeout),
		busapi.WithTokenSource(env.provider),
	}

	if cfg.Redis.Enabled {
		if err := redis_client.Connect(cfg.Redis); err != nil {
			env.close()
			return nil, fmt.Errorf("views: redis: %w", err)
		}

		clientOptions = append(clientOptions, busapi.WithStaticCache(busapi.NewStaticCache(redis_client.Client, busapi.DefaultCacheExpiration)))

		queueSink, err := notify.NewQueueAlertSink(redis_client.QueueConnection)
		if err != nil {
			env.close()
			return nil, err
		}
		env.alertSink = queueSink
	}

	env.client, err = busapi.NewClient(cfg.APIURL, clientOptions...)
	if err != nil {
		env.close()
		return nil, err
	}

	if err := env.signIn(c); err != nil {
		env.close()
		return nil, err
	}

	return env, nil
}

func (e *environment) signIn(c *cli.Context) error {
	email := c.String("email")
	if email == "" {
		return e.waitReady(c.Context)
	}

	current, err := e.store.Login(c.Context, session.Credentials{Email: email, Password: c.String("password")})
	if err != nil {
		if session.IsAuthError(err) {
			return fmt.Errorf("sign in failed: %w", err)
		}
		return err
	}

	log.Info().Str("email", current.Email).Str("role", current.Role.String()).Msg("Signed in")

	return nil
}

func (e *environment) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, sessionReadyTimeout)
	defer cancel()

	updates, unsubscribe := e.store.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("views: waiting for session: %w", ctx.Err())
		case current, ok := <-updates:
			if !ok {
				return session.ErrStoreClosed
			}
			if current.IsReady() {
				return nil
			}
		}
	}
}

// open checks the page at path against the session and returns its route
// parameters when it may be shown.
// LeftPageError reports that the session no longer allows the page that was
// opened, either at open or after a later session change.
type LeftPageError struct {
	Path     string
	Decision guard.Decision
	Role     session.Role
}

func (e *LeftPageError) Error() string {
	switch e.Decision.Outcome {
	case guard.RedirectLogin:
		return fmt.Sprintf("%s requires signing in, pass --email and --password (redirected to %s)", e.Path, e.Decision.Target)
	case guard.Deny:
		return fmt.Sprintf("%s is not available to %s accounts (redirected to %s)", e.Path, e.Role, e.Decision.Target)
	default:
		return fmt.Sprintf("%s not found", e.Path)
	}
}

// page is an opened view. Its context is cancelled as soon as the navigator
// stops rendering the path, so views mounted on it stop polling.
type page struct {
	ctx       context.Context
	cancel    context.CancelCauseFunc
	params    map[string]string
	navigator *guard.Navigator
}

// err is the reason the page was left, nil while it still renders or when
// the parent context ended it.
func (p *page) err() error {
	var left *LeftPageError
	if errors.As(context.Cause(p.ctx), &left) {
		return left
	}

	return nil
}

func (p *page) close() {
	p.navigator.Close()
	p.cancel(context.Canceled)
}

func (e *environment) open(ctx context.Context, path string) (*page, error) {
	pageCtx, cancel := context.WithCancelCause(ctx)

	leave := func(view guard.View) error {
		return &LeftPageError{Path: path, Decision: view.Decision, Role: e.store.CurrentRole()}
	}

	navigator := guard.NewNavigator(ctx, e.store, guard.DefaultRouter(), func(view guard.View) {
		log.Debug().Str("requested", view.Requested).Str("outcome", view.Decision.Outcome.String()).Msg("View evaluated")

		if view.Requested == path && view.Decision.Outcome != guard.Render {
			cancel(leave(view))
		}
	})

	view := navigator.Navigate(path)
	if view.Decision.Outcome != guard.Render {
		err := leave(view)
		navigator.Close()
		cancel(err)
		return nil, err
	}

	return &page{
		ctx:       pageCtx,
		cancel:    cancel,
		params:    view.Params,
		navigator: navigator,
	}, nil
}

func (e *environment) viewOptions(interval time.Duration) []Option {
	return []Option{
		WithInterval(interval),
		WithFetchTimeout(e.cfg.RequestTimeout),
		WithReporter(elastic_client.ReportPollError),
	}
}

// dashboardSink forwards new alerts to the notify queue and the alert index.
func (e *environment) dashboardSink() AlertSink {
	return AlertSinkFunc(func(alert ctdf.Alert) error {
		elastic_client.ReportAlert(&alert)

		if e.alertSink == nil {
			return nil
		}
		return e.alertSink.PublishAlert(alert)
	})
}

func (e *environment) close() {
	session.Shutdown()
	if e.provider != nil {
		e.provider.Close()
	}

	elastic_client.WaitUntilQueueEmpty()
	redis_client.Close()
}
