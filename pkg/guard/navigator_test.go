package guard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Shahir-collab/bus-routes-website/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessionSource struct {
	mu       sync.Mutex
	current  session.Session
	channels []chan session.Session
}

func (f *fakeSessionSource) Current() session.Session {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.current
}

func (f *fakeSessionSource) Subscribe() (<-chan session.Session, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan session.Session, 1)
	ch <- f.current
	f.channels = append(f.channels, ch)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			close(ch)
		})
	}
}

func (f *fakeSessionSource) set(s session.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.current = s
	for _, ch := range f.channels {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

type viewLog struct {
	mu    sync.Mutex
	views []View
}

func (l *viewLog) add(v View) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.views = append(l.views, v)
}

func (l *viewLog) last() View {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.views) == 0 {
		return View{}
	}
	return l.views[len(l.views)-1]
}

func TestNavigatorKeepsRequestedPathAcrossLogin(t *testing.T) {
	source := &fakeSessionSource{current: session.Session{Status: session.StatusInitializing}}
	var views viewLog

	navigator := NewNavigator(context.Background(), source, DefaultRouter(), views.add)
	defer navigator.Close()

	view := navigator.Navigate("/bus/7")
	assert.Equal(t, RedirectLogin, view.Decision.Outcome)
	assert.Equal(t, "/login", view.Path())

	source.set(session.Session{Identity: "uid-1", Role: session.RoleUser, Status: session.StatusReady})

	require.Eventually(t, func() bool {
		return navigator.Current().Decision.Outcome == Render
	}, time.Second, 5*time.Millisecond)

	current := navigator.Current()
	assert.Equal(t, "/bus/7", current.Path())
	assert.Equal(t, "7", current.Params["id"])
	assert.Equal(t, Render, views.last().Decision.Outcome)
}

func TestNavigatorReactsToExpiry(t *testing.T) {
	source := &fakeSessionSource{current: session.Session{Identity: "uid-9", Role: session.RoleAdmin, Status: session.StatusReady}}

	navigator := NewNavigator(context.Background(), source, DefaultRouter(), nil)
	defer navigator.Close()

	assert.Equal(t, Render, navigator.Navigate("/admin/dashboard").Decision.Outcome)

	source.set(session.Session{Role: session.RoleAnonymous, Status: session.StatusReady})

	require.Eventually(t, func() bool {
		return navigator.Current().Path() == "/admin/login"
	}, time.Second, 5*time.Millisecond)
}

func TestNavigatorDeniesDemotedAdmin(t *testing.T) {
	source := &fakeSessionSource{current: session.Session{Identity: "uid-9", Role: session.RoleAdmin, Status: session.StatusReady}}

	navigator := NewNavigator(context.Background(), source, DefaultRouter(), nil)
	defer navigator.Close()

	navigator.Navigate("/admin/buses")

	source.set(session.Session{Identity: "uid-9", Role: session.RoleUser, Status: session.StatusReady})

	require.Eventually(t, func() bool {
		return navigator.Current().Decision.Outcome == Deny
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "/", navigator.Current().Path())
}

func TestNavigatorUnknownPath(t *testing.T) {
	source := &fakeSessionSource{current: session.Session{Status: session.StatusReady}}

	navigator := NewNavigator(context.Background(), source, DefaultRouter(), nil)
	defer navigator.Close()

	view := navigator.Navigate("/timetables")
	assert.Equal(t, NotFound, view.Decision.Outcome)
	assert.Equal(t, "/timetables", view.Path())
}

func TestNavigatorStopsWithContext(t *testing.T) {
	source := &fakeSessionSource{current: session.Session{Status: session.StatusReady}}
	ctx, cancel := context.WithCancel(context.Background())

	navigator := NewNavigator(ctx, source, DefaultRouter(), nil)
	cancel()

	select {
	case <-navigator.done:
	case <-time.After(time.Second):
		t.Fatal("navigator did not stop")
	}

	navigator.Close()
}
