// Package identity implements the session identity provider on Firebase
// Authentication, with user profiles and roles stored in Firestore.
package identity

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/Shahir-collab/bus-routes-website/pkg/config"
	"github.com/Shahir-collab/bus-routes-website/pkg/session"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

var ErrTokenExpired = errors.New("identity: id token expired")

const defaultRefreshLead = 5 * time.Minute

type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type userCreator interface {
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
}

type Provider struct {
	rest     *restClient
	verifier tokenVerifier
	users    userCreator
	profiles ProfileStore

	changes chan session.AuthChange

	ctx    context.Context
	cancel context.CancelFunc

	refreshLead  time.Duration
	retryBackOff func(maxElapsed time.Duration) backoff.BackOff

	mu       sync.Mutex
	user     *session.User
	grant    tokenGrant
	role     *session.Role
	stopUser context.CancelFunc
}

// NewFirebaseApp sets up the Firebase app from the base64 encoded service account.
func NewFirebaseApp(ctx context.Context, cfg config.FirebaseConfig) (*firebase.App, error) {
	decodedKey, err := base64.StdEncoding.DecodeString(cfg.ServiceAccount)
	if err != nil {
		return nil, fmt.Errorf("identity: service account: %w", err)
	}

	opts := []option.ClientOption{option.WithCredentialsJSON(decodedKey)}

	var firebaseConfig *firebase.Config
	if cfg.ProjectID != "" {
		firebaseConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, firebaseConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("identity: firebase app: %w", err)
	}

	return app, nil
}

// New connects to Firebase Authentication and Firestore.
func New(ctx context.Context, cfg config.FirebaseConfig) (*Provider, error) {
	if cfg.WebAPIKey == "" {
		return nil, errors.New("identity: firebase web api key is required")
	}

	app, err := NewFirebaseApp(ctx, cfg)
	if err != nil {
		return nil, err
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("identity: auth client: %w", err)
	}

	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("identity: firestore client: %w", err)
	}

	return newProvider(ctx, newRESTClient(cfg.WebAPIKey), authClient, authClient, &FirestoreProfiles{Client: firestoreClient}), nil
}

func newProvider(ctx context.Context, rest *restClient, verifier tokenVerifier, users userCreator, profiles ProfileStore) *Provider {
	providerCtx, cancel := context.WithCancel(ctx)

	p := &Provider{
		rest:         rest,
		verifier:     verifier,
		users:        users,
		profiles:     profiles,
		changes:      make(chan session.AuthChange, 16),
		ctx:          providerCtx,
		cancel:       cancel,
		refreshLead:  defaultRefreshLead,
		retryBackOff: defaultRetryBackOff,
	}

	// Nobody is signed in when the process starts
	p.changes <- session.AuthChange{}

	return p
}

func defaultRetryBackOff(maxElapsed time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = maxElapsed

	return b
}

func (p *Provider) Changes() <-chan session.AuthChange {
	return p.changes
}

func (p *Provider) emit(change session.AuthChange) {
	select {
	case p.changes <- change:
	case <-p.ctx.Done():
	}
}

func (p *Provider) SignIn(ctx context.Context, email string, password string) (session.User, error) {
	grant, err := p.rest.signInWithPassword(ctx, email, password)
	if err != nil {
		return session.User{}, err
	}

	token, err := p.verifier.VerifyIDToken(ctx, grant.IDToken)
	if err != nil {
		return session.User{}, fmt.Errorf("identity: verify id token: %w", session.ErrInvalidCredentials)
	}

	user := session.User{UID: token.UID, Email: grant.Email}
	grant.UID = token.UID

	p.startUser(user, grant)

	log.Info().Str("uid", user.UID).Msg("Signed in")
	p.emit(session.AuthChange{User: &user})

	return user, nil
}

func (p *Provider) CreateUser(ctx context.Context, email string, password string, name string) (session.User, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(name)

	record, err := p.users.CreateUser(ctx, params)
	if err != nil {
		switch {
		case auth.IsEmailAlreadyExists(err):
			return session.User{}, fmt.Errorf("identity: create user: %w", session.ErrEmailInUse)
		default:
			return session.User{}, fmt.Errorf("identity: create user: %w: %w", session.ErrProviderUnreachable, err)
		}
	}

	profile := session.UserProfile{UID: record.UID, Name: name, Email: email, Role: session.RoleUser}
	if err := p.profiles.Create(ctx, profile); err != nil {
		return session.User{}, err
	}

	return p.SignIn(ctx, email, password)
}

func (p *Provider) GetUserProfile(ctx context.Context, uid string) (session.UserProfile, error) {
	profile, _, err := p.profiles.Get(ctx, uid)
	if err != nil {
		return session.UserProfile{}, err
	}

	return profile, nil
}

func (p *Provider) SignOut(ctx context.Context) error {
	if !p.clearUser() {
		return nil
	}

	log.Info().Msg("Signed out")
	p.emit(session.AuthChange{})

	return nil
}

// Token returns the current ID token, or an empty string when signed out.
func (p *Provider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.user == nil {
		return "", nil
	}

	if !time.Now().Before(p.grant.Expiry) {
		return "", ErrTokenExpired
	}

	return p.grant.IDToken, nil
}

func (p *Provider) CurrentUser() (session.User, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.user == nil {
		return session.User{}, false
	}

	return *p.user, true
}

func (p *Provider) Close() {
	p.clearUser()
	p.cancel()
}

func (p *Provider) startUser(user session.User, grant tokenGrant) {
	userCtx, cancel := context.WithCancel(p.ctx)

	p.mu.Lock()
	if p.stopUser != nil {
		p.stopUser()
	}
	p.user = &user
	p.grant = grant
	p.role = nil
	p.stopUser = cancel
	p.mu.Unlock()

	go p.refreshLoop(userCtx, user)
	go p.watchProfile(userCtx, user)
}

// clearUser forgets the signed in user, reporting whether there was one.
func (p *Provider) clearUser() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.user == nil {
		return false
	}

	p.stopUser()
	p.stopUser = nil
	p.user = nil
	p.grant = tokenGrant{}
	p.role = nil

	return true
}

func (p *Provider) refreshLoop(ctx context.Context, user session.User) {
	for {
		p.mu.Lock()
		grant := p.grant
		p.mu.Unlock()

		wait := time.Until(grant.Expiry) - p.refreshLead
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		var renewed tokenGrant
		operation := func() error {
			var err error
			renewed, err = p.rest.refresh(ctx, grant.RefreshToken)
			if errors.Is(err, session.ErrInvalidCredentials) {
				return backoff.Permanent(err)
			}
			return err
		}

		maxElapsed := time.Until(grant.Expiry)
		if maxElapsed < time.Second {
			maxElapsed = time.Second
		}

		err := backoff.Retry(operation, backoff.WithContext(p.retryBackOff(maxElapsed), ctx))
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			log.Error().Err(err).Str("uid", user.UID).Msg("Failed to refresh ID token, signing out")

			if p.expire(user) {
				p.emit(session.AuthChange{})
			}
			return
		}

		p.mu.Lock()
		if p.user == nil || p.user.UID != user.UID {
			p.mu.Unlock()
			return
		}
		renewed.UID = user.UID
		renewed.Email = user.Email
		p.grant = renewed
		p.mu.Unlock()

		log.Debug().Str("uid", user.UID).Time("expiry", renewed.Expiry).Msg("Refreshed ID token")
	}
}

// expire signs user out if they are still the current user.
func (p *Provider) expire(user session.User) bool {
	p.mu.Lock()
	current := p.user
	p.mu.Unlock()

	if current == nil || current.UID != user.UID {
		return false
	}

	return p.clearUser()
}

// watchProfile re-announces the user whenever their role changes so the
// session store resolves it again.
func (p *Provider) watchProfile(ctx context.Context, user session.User) {
	onChange := func(profile session.UserProfile, exists bool) {
		p.mu.Lock()
		if p.user == nil || p.user.UID != user.UID {
			p.mu.Unlock()
			return
		}

		previous := p.role
		role := profile.Role
		p.role = &role
		p.mu.Unlock()

		if previous == nil || *previous == role {
			return
		}

		log.Info().Str("uid", user.UID).Str("from", previous.String()).Str("to", role.String()).Msg("Role changed")

		changed := user
		p.emit(session.AuthChange{User: &changed})
	}

	operation := func() error {
		return p.profiles.Watch(ctx, user.UID, onChange)
	}

	notify := func(err error, next time.Duration) {
		log.Warn().Err(err).Str("uid", user.UID).Dur("next", next).Msg("Profile watch failed, retrying")
	}

	backoff.RetryNotify(operation, backoff.WithContext(p.retryBackOff(0), ctx), notify)
}
