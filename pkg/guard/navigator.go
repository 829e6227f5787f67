package guard

import (
	"context"
	"sync"

	"github.com/Shahir-collab/bus-routes-website/pkg/session"
	"github.com/rs/zerolog/log"
)

type SessionSource interface {
	Current() session.Session
	Subscribe() (<-chan session.Session, func())
}

// View is the result of evaluating the requested path.
type View struct {
	Requested string
	Route     Route
	Params    map[string]string
	Decision  Decision
}

// Path is the path actually shown for this view.
func (v View) Path() string {
	if v.Decision.Outcome == Render || v.Decision.Target == "" {
		return v.Requested
	}

	return v.Decision.Target
}

// Navigator re-evaluates the requested path on every navigation and on every
// session change, so a redirected request renders once the session allows it.
type Navigator struct {
	router *Router
	source SessionSource
	onView func(View)

	mu        sync.Mutex
	requested string
	current   View

	unsubscribe func()
	done        chan struct{}
}

// NewNavigator starts following source. onView is called with every new view
// and must not call back into the Navigator.
func NewNavigator(ctx context.Context, source SessionSource, router *Router, onView func(View)) *Navigator {
	if onView == nil {
		onView = func(View) {}
	}

	updates, unsubscribe := source.Subscribe()

	n := &Navigator{
		router:      router,
		source:      source,
		onView:      onView,
		requested:   HomePath,
		unsubscribe: unsubscribe,
		done:        make(chan struct{}),
	}

	go n.follow(ctx, updates)

	return n
}

func (n *Navigator) follow(ctx context.Context, updates <-chan session.Session) {
	defer close(n.done)

	for {
		select {
		case <-ctx.Done():
			n.unsubscribe()
			return
		case current, ok := <-updates:
			if !ok {
				return
			}

			n.mu.Lock()
			n.evaluateLocked(current)
			n.mu.Unlock()
		}
	}
}

func (n *Navigator) Navigate(path string) View {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.requested = path

	return n.evaluateLocked(n.source.Current())
}

func (n *Navigator) Current() View {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.current
}

func (n *Navigator) evaluateLocked(current session.Session) View {
	view := View{Requested: n.requested}

	route, params, ok := n.router.Match(n.requested)
	if ok {
		view.Route = route
		view.Params = params
		view.Decision = Evaluate(current, route.Requirement)
	} else {
		view.Decision = Decision{Outcome: NotFound}
	}

	if view.Decision != n.current.Decision || view.Requested != n.current.Requested {
		log.Debug().
			Str("requested", view.Requested).
			Str("outcome", view.Decision.Outcome.String()).
			Str("target", view.Decision.Target).
			Msg("Navigation evaluated")
	}

	n.current = view
	n.onView(view)

	return view
}

func (n *Navigator) Close() {
	n.unsubscribe()
	<-n.done
}
