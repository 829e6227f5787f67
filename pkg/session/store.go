package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

type Option func(*Store)

// WithRetryBackOff sets the policy used to retry failed role resolutions.
func WithRetryBackOff(newBackOff func() backoff.BackOff) Option {
	return func(s *Store) {
		s.newBackOff = newBackOff
	}
}

type Store struct {
	provider IdentityProvider

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu            sync.RWMutex
	session       Session
	generation    uint64
	resolveCancel context.CancelFunc

	subscribers  map[int]chan Session
	waiters      map[int]chan snapshot
	nextSubscrID int
	closed       bool

	newBackOff func() backoff.BackOff
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = time.Minute
	b.MaxElapsedTime = 0

	return b
}

// NewStore starts following provider's change stream. The session is
// Initializing until the provider reports its first state.
func NewStore(ctx context.Context, provider IdentityProvider, opts ...Option) *Store {
	storeCtx, cancel := context.WithCancel(ctx)

	s := &Store{
		provider:    provider,
		ctx:         storeCtx,
		cancel:      cancel,
		done:        make(chan struct{}),
		session:     Session{Role: RoleAnonymous, Status: StatusInitializing},
		subscribers: map[int]chan Session{},
		waiters:     map[int]chan snapshot{},
		newBackOff:  defaultBackOff,
	}

	for _, opt := range opts {
		opt(s)
	}

	go s.listen()

	return s
}

func (s *Store) listen() {
	defer close(s.done)

	changes := s.provider.Changes()

	for {
		select {
		case <-s.ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				log.Warn().Msg("Identity provider closed its change stream")
				return
			}

			s.handle(change)
		}
	}
}

func (s *Store) handle(change AuthChange) {
	s.mu.Lock()

	s.generation++
	generation := s.generation

	if s.resolveCancel != nil {
		s.resolveCancel()
		s.resolveCancel = nil
	}

	if change.User == nil {
		log.Debug().Uint64("generation", generation).Msg("Signed out")

		s.replaceLocked(Session{Role: RoleAnonymous, Status: StatusReady})
		s.mu.Unlock()
		return
	}

	user := *change.User

	resolveCtx, cancel := context.WithCancel(s.ctx)
	s.resolveCancel = cancel

	s.replaceLocked(Session{
		Identity: user.UID,
		Email:    user.Email,
		Role:     RoleAnonymous,
		Status:   StatusInitializing,
	})
	s.mu.Unlock()

	go s.resolve(resolveCtx, generation, user)
}

func (s *Store) resolve(ctx context.Context, generation uint64, user User) {
	profile, err := s.provider.GetUserProfile(ctx, user.UID)
	if err == nil {
		s.apply(generation, resolvedSession(user, profile))
		return
	}

	if ctx.Err() != nil {
		return
	}

	log.Warn().Err(err).Str("uid", user.UID).Msg("Failed to resolve role, treating user as anonymous")

	s.apply(generation, Session{
		Identity: user.UID,
		Email:    user.Email,
		Role:     RoleAnonymous,
		Status:   StatusReady,
		Err:      err,
	})

	retry := func() error {
		profile, err = s.provider.GetUserProfile(ctx, user.UID)
		return err
	}

	notify := func(err error, next time.Duration) {
		log.Debug().Err(err).Str("uid", user.UID).Dur("next", next).Msg("Role resolution retry failed")
	}

	if err := backoff.RetryNotify(retry, backoff.WithContext(s.newBackOff(), ctx), notify); err != nil {
		return
	}

	log.Info().Str("uid", user.UID).Msg("Resolved role after retry")
	s.apply(generation, resolvedSession(user, profile))
}

func resolvedSession(user User, profile UserProfile) Session {
	email := user.Email
	if email == "" {
		email = profile.Email
	}

	return Session{
		Identity: user.UID,
		Email:    email,
		Role:     profile.Role,
		Status:   StatusReady,
	}
}

// apply replaces the session unless a newer notification has arrived since
// the resolution for generation started.
func (s *Store) apply(generation uint64, session Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation || s.closed {
		log.Debug().Uint64("generation", generation).Uint64("current", s.generation).Msg("Discarding superseded role resolution")
		return false
	}

	s.replaceLocked(session)

	return true
}

func (s *Store) replaceLocked(session Session) {
	s.session = session

	for _, subscriber := range s.subscribers {
		offer(subscriber, session)
	}

	for _, waiter := range s.waiters {
		offer(waiter, snapshot{session: session, generation: s.generation})
	}
}

// snapshot is a session tagged with the notification generation it belongs to.
type snapshot struct {
	session    Session
	generation uint64
}

// offer delivers value to a latest-wins channel of capacity one.
func offer[T any](ch chan T, value T) {
	select {
	case <-ch:
	default:
	}

	select {
	case ch <- value:
	default:
	}
}

func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.session
}

func (s *Store) CurrentRole() Role {
	return s.Current().Role
}

func (s *Store) IsReady() bool {
	return s.Current().IsReady()
}

func (s *Store) IsAuthenticated() bool {
	return s.Current().IsAuthenticated()
}

func (s *Store) IsAdmin() bool {
	return s.Current().IsAdmin()
}

// Subscribe returns a channel holding the latest session snapshot. Readers
// that fall behind only ever see the newest value. The channel is closed by
// the returned function or when the store is closed.
func (s *Store) Subscribe() (<-chan Session, func()) {
	ch := make(chan Session, 1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		ch <- s.session
		close(ch)
		return ch, func() {}
	}

	id := s.nextSubscrID
	s.nextSubscrID++

	s.subscribers[id] = ch
	ch <- s.session

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()

			if _, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(ch)
			}
		})
	}

	return ch, unsubscribe
}

func (s *Store) currentGeneration() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.generation
}

// watch is Subscribe for snapshots newer than after.
func (s *Store) watch(after uint64) (<-chan snapshot, func()) {
	ch := make(chan snapshot, 1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSubscrID
	s.nextSubscrID++

	s.waiters[id] = ch
	if s.generation > after {
		ch <- snapshot{session: s.session, generation: s.generation}
	}

	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()

			if _, ok := s.waiters[id]; ok {
				delete(s.waiters, id)
				close(ch)
			}
		})
	}

	return ch, stop
}

// Login signs in and waits for the resulting session to be resolved. Only
// notifications that arrive after the sign in count, so signing in again as
// the current user still picks up a changed role.
func (s *Store) Login(ctx context.Context, credentials Credentials) (Session, error) {
	after := s.currentGeneration()

	user, err := s.provider.SignIn(ctx, credentials.Email, credentials.Password)
	if err != nil {
		return s.Current(), fmt.Errorf("session: login: %w", err)
	}

	return s.awaitResolved(ctx, user.UID, after)
}

// Register creates the account with the user role and waits for the resulting session.
func (s *Store) Register(ctx context.Context, registration Registration) (Session, error) {
	after := s.currentGeneration()

	user, err := s.provider.CreateUser(ctx, registration.Email, registration.Password, registration.Name)
	if err != nil {
		return s.Current(), fmt.Errorf("session: register: %w", err)
	}

	return s.awaitResolved(ctx, user.UID, after)
}

// Logout asks the provider to sign out. The session changes once the
// provider's notification arrives, never directly.
func (s *Store) Logout(ctx context.Context) {
	if err := s.provider.SignOut(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to sign out")
	}
}

func (s *Store) awaitResolved(ctx context.Context, uid string, after uint64) (Session, error) {
	updates, stop := s.watch(after)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return s.Current(), ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return s.Current(), ErrStoreClosed
			}

			session := update.session
			if update.generation <= after || session.Identity != uid || !session.IsReady() {
				continue
			}

			if session.Err != nil {
				return session, fmt.Errorf("%w: %w", ErrRoleUnresolved, session.Err)
			}

			return session, nil
		}
	}
}

// Close stops following the provider and closes every subscription.
func (s *Store) Close() {
	s.cancel()
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	if s.resolveCancel != nil {
		s.resolveCancel()
		s.resolveCancel = nil
	}

	for id, subscriber := range s.subscribers {
		delete(s.subscribers, id)
		close(subscriber)
	}

	for id, waiter := range s.waiters {
		delete(s.waiters, id)
		close(waiter)
	}
}
