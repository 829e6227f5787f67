package views

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Shahir-collab/bus-routes-website/pkg/ctdf"
	"github.com/Shahir-collab/bus-routes-website/pkg/guard"
	"github.com/Shahir-collab/bus-routes-website/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signedInProvider has one user already signed in whose role can change.
type signedInProvider struct {
	user    session.User
	changes chan session.AuthChange

	mu   sync.Mutex
	role session.Role
}

func newSignedInProvider(role session.Role) *signedInProvider {
	p := &signedInProvider{
		user:    session.User{UID: "ops-1", Email: "ops@example.com"},
		changes: make(chan session.AuthChange, 4),
		role:    role,
	}
	p.changes <- session.AuthChange{User: &p.user}

	return p
}

// setRole changes the stored role and notifies like a refreshed token would.
func (p *signedInProvider) setRole(role session.Role) {
	p.mu.Lock()
	p.role = role
	p.mu.Unlock()

	user := p.user
	p.changes <- session.AuthChange{User: &user}
}

func (p *signedInProvider) signOut() {
	p.changes <- session.AuthChange{}
}

func (p *signedInProvider) Changes() <-chan session.AuthChange {
	return p.changes
}

func (p *signedInProvider) SignIn(ctx context.Context, email string, password string) (session.User, error) {
	return p.user, nil
}

func (p *signedInProvider) CreateUser(ctx context.Context, email string, password string, name string) (session.User, error) {
	return session.User{}, session.ErrEmailInUse
}

func (p *signedInProvider) GetUserProfile(ctx context.Context, uid string) (session.UserProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return session.UserProfile{UID: uid, Email: p.user.Email, Role: p.role}, nil
}

func (p *signedInProvider) SignOut(ctx context.Context) error {
	p.signOut()
	return nil
}

func newSignedInEnvironment(t *testing.T, provider *signedInProvider, ready func(*session.Store) bool) *environment {
	t.Helper()

	store := session.NewStore(context.Background(), provider)
	t.Cleanup(store.Close)

	require.Eventually(t, func() bool { return ready(store) }, waitFor, tick)

	return &environment{store: store}
}

func followedDashboard(t *testing.T, ctx context.Context, calls *atomic.Int32) {
	t.Helper()

	backend := &fakeDashboardBackend{
		stats:  []ctdf.DashboardStats{{TotalBuses: 10}},
		alerts: [][]ctdf.Alert{nil},
	}

	dashboard := NewDashboard(backend, func(DashboardState) { calls.Add(1) }, WithInterval(2*time.Millisecond))
	dashboard.Mount(ctx)
	t.Cleanup(dashboard.Unmount)
}

// assertSettled checks that no further state changes arrive.
func assertSettled(t *testing.T, calls *atomic.Int32) {
	t.Helper()

	time.Sleep(20 * time.Millisecond)
	settled := calls.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, settled, calls.Load())
}

func TestDemotionStopsFollowedDashboard(t *testing.T) {
	provider := newSignedInProvider(session.RoleAdmin)
	env := newSignedInEnvironment(t, provider, (*session.Store).IsAdmin)

	page, err := env.open(context.Background(), dashboardPath)
	require.NoError(t, err)
	defer page.close()

	var calls atomic.Int32
	followedDashboard(t, page.ctx, &calls)

	require.Eventually(t, func() bool { return calls.Load() > 6 }, waitFor, tick)
	assert.NoError(t, page.err())

	provider.setRole(session.RoleUser)

	require.Eventually(t, func() bool { return page.ctx.Err() != nil }, waitFor, tick)

	require.Eventually(t, func() bool {
		return page.navigator.Current().Decision.Outcome == guard.Deny
	}, waitFor, tick)
	assertSettled(t, &calls)

	// the re-resolution may be seen as signed out before the user role lands
	var left *LeftPageError
	require.ErrorAs(t, page.err(), &left)
	assert.Contains(t, []guard.Outcome{guard.Deny, guard.RedirectLogin}, left.Decision.Outcome)
	assert.ErrorContains(t, page.err(), "redirected to "+left.Decision.Target)
}

func TestSignOutStopsFollowedDashboard(t *testing.T) {
	provider := newSignedInProvider(session.RoleAdmin)
	env := newSignedInEnvironment(t, provider, (*session.Store).IsAdmin)

	page, err := env.open(context.Background(), dashboardPath)
	require.NoError(t, err)
	defer page.close()

	var calls atomic.Int32
	followedDashboard(t, page.ctx, &calls)

	require.Eventually(t, func() bool { return calls.Load() > 2 }, waitFor, tick)

	provider.signOut()

	require.Eventually(t, func() bool { return page.ctx.Err() != nil }, waitFor, tick)
	assertSettled(t, &calls)

	var left *LeftPageError
	require.ErrorAs(t, page.err(), &left)
	assert.Equal(t, guard.RedirectLogin, left.Decision.Outcome)
	assert.Equal(t, guard.AdminLoginPath, left.Decision.Target)
}

func TestOpenRefusesPageTheRoleCannotSee(t *testing.T) {
	provider := newSignedInProvider(session.RoleUser)
	env := newSignedInEnvironment(t, provider, (*session.Store).IsAuthenticated)

	page, err := env.open(context.Background(), dashboardPath)
	assert.Nil(t, page)

	var left *LeftPageError
	require.ErrorAs(t, err, &left)
	assert.Equal(t, guard.Deny, left.Decision.Outcome)
	assert.ErrorContains(t, err, "not available to user accounts")
}

func TestClosedPageHasNoError(t *testing.T) {
	provider := newSignedInProvider(session.RoleUser)
	env := newSignedInEnvironment(t, provider, (*session.Store).IsAuthenticated)

	page, err := env.open(context.Background(), "/search")
	require.NoError(t, err)

	page.close()
	assert.Error(t, page.ctx.Err())
	assert.NoError(t, page.err())
}
