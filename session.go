package sdk

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/rs/zerolog"

	"github.com/cadenafria/cadenafria-go/auth"
)

// SessionStatus is the authentication state exposed to routing and UI.
type SessionStatus string

const (
	// SessionAnonymous means no credential is held.
	SessionAnonymous SessionStatus = "anonymous"
	// SessionRestoring means a stored credential is being validated at boot.
	SessionRestoring SessionStatus = "restoring"
	// SessionAuthenticated means a decoded identity is active.
	SessionAuthenticated SessionStatus = "authenticated"
	// SessionError is a transient failure state, always followed by anonymous.
	SessionError SessionStatus = "error"
)

// sessionExpiredNotice is the user-visible message for a rejected or
// unreachable refresh.
const sessionExpiredNotice = "session expired"

const logoutTimeout = 5 * time.Second

// Identity is the decoded owner of the current session.
type Identity struct {
	ID          string
	Email       string
	Role        Role
	DisplayName string
}

// Session is the single authoritative authentication state. Status is
// SessionAuthenticated exactly when Identity is non-nil.
type Session struct {
	Status    SessionStatus
	Identity  *Identity
	LastError string
}

// SessionManager owns the Session value and the credential lifecycle. All
// mutation flows through its operations; consumers only read State or
// subscribe to changes.
type SessionManager struct {
	store   CredentialStore
	authc   *auth.Client
	refresh credentialRefresher

	logger    zerolog.Logger
	telemetry TelemetryHooks

	mu      sync.Mutex
	session Session
	restore *restoreCall
	subs    map[int]func(Session)
	nextSub int
}

type restoreCall struct {
	done chan struct{}
	err  error
}

func newSessionManager(store CredentialStore, authc *auth.Client, refresh credentialRefresher, logger zerolog.Logger, telemetry TelemetryHooks) *SessionManager {
	return &SessionManager{
		store:     store,
		authc:     authc,
		refresh:   refresh,
		logger:    logger,
		telemetry: telemetry,
		session:   Session{Status: SessionAnonymous},
		subs:      map[int]func(Session){},
	}
}

// State returns a copy of the current session.
func (m *SessionManager) State() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}
	return s
}

// Subscribe registers fn to run on every session transition and returns a
// cancel function. fn runs outside the manager's lock; it may call State.
func (m *SessionManager) Subscribe(fn func(Session)) (cancel func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *SessionManager) publish(s Session) {
	m.mu.Lock()
	m.session = s
	fns := make([]func(Session), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
	m.telemetry.sessionChange(s)
}

type loginPayload struct {
	Email    string
	Password string
}

func (p loginPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required),
	)
}

// LoginOption customizes a login call.
type LoginOption func(*auth.Credentials)

// WithTurnstileToken forwards the anti-bot challenge response.
func WithTurnstileToken(token string) LoginOption {
	return func(c *auth.Credentials) {
		c.TurnstileToken = token
	}
}

// Login authenticates with email and password. On success the credential is
// persisted, claims are decoded, and the session becomes authenticated. On
// any failure the store is cleared before the error returns, so no partial
// state survives.
func (m *SessionManager) Login(ctx context.Context, email, password string, opts ...LoginOption) (Identity, error) {
	payload := loginPayload{Email: strings.TrimSpace(email), Password: password}
	if err := payload.Validate(); err != nil {
		return Identity{}, newError(ErrCodeValidation, err)
	}

	creds := auth.Credentials{Email: payload.Email, Password: password}
	for _, opt := range opts {
		opt(&creds)
	}

	resp, err := m.authc.Login(ctx, creds)
	if err != nil {
		m.clearCredential()
		m.publish(Session{Status: SessionAnonymous})
		return Identity{}, classifyLoginErr(err)
	}

	// Persist before publishing so the next outgoing request already
	// carries the new credential.
	if err := m.store.Set(resp.AccessToken); err != nil {
		// A previous user's credential must not outlive the failed swap.
		m.clearCredential()
		m.publish(Session{Status: SessionAnonymous})
		return Identity{}, newError(ErrCodeConnection, err)
	}
	claims, err := auth.DecodeClaims(resp.AccessToken)
	if err != nil {
		m.clearCredential()
		m.publish(Session{Status: SessionAnonymous})
		return Identity{}, newError(ErrCodeDecodeFailed, err)
	}

	identity := identityFrom(claims, resp)
	m.logger.Info().Str("user", identity.ID).Str("role", identity.Role.String()).Msg("login succeeded")
	m.publish(Session{Status: SessionAuthenticated, Identity: &identity})
	return identity, nil
}

// Logout tears the session down. Local cleanup is unconditional; the remote
// logout call is fire-and-forget and its failure is only logged.
func (m *SessionManager) Logout() {
	m.teardown("")
}

// sessionExpired is the centralized sign-out invoked when refresh recovery
// is exhausted. Wired into the transport once during client construction.
func (m *SessionManager) sessionExpired() {
	m.teardown(sessionExpiredNotice)
}

func (m *SessionManager) teardown(notice string) {
	m.clearCredential()
	if notice != "" {
		m.publish(Session{Status: SessionError, LastError: notice})
	}
	m.publish(Session{Status: SessionAnonymous, LastError: notice})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
		defer cancel()
		if err := m.authc.Logout(ctx); err != nil {
			m.logger.Warn().Err(err).Msg("remote logout failed, local session already cleared")
		}
	}()
}

// RestoreSession validates a previously stored credential at boot. It is
// idempotent and re-entrant: concurrent callers attach to the in-progress
// restoration and observe its outcome.
func (m *SessionManager) RestoreSession(ctx context.Context) error {
	m.mu.Lock()
	if r := m.restore; r != nil {
		m.mu.Unlock()
		select {
		case <-r.done:
			return r.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r := &restoreCall{done: make(chan struct{})}
	m.restore = r
	m.mu.Unlock()

	r.err = m.restoreOnce(ctx)

	m.mu.Lock()
	m.restore = nil
	m.mu.Unlock()
	close(r.done)
	return r.err
}

func (m *SessionManager) restoreOnce(ctx context.Context) error {
	stored, ok := m.store.Get()
	if !ok {
		m.publish(Session{Status: SessionAnonymous})
		return nil
	}
	m.publish(Session{Status: SessionRestoring})

	if _, err := auth.DecodeClaims(stored); err != nil {
		m.clearCredential()
		m.expire()
		return newError(ErrCodeDecodeFailed, err)
	}

	// The coordinator persists the fresh credential on success and clears
	// the store on failure.
	fresh, err := m.refresh.Credential(ctx)
	if err != nil {
		m.expire()
		return classifyRefreshErr(err)
	}
	claims, err := auth.DecodeClaims(fresh)
	if err != nil {
		m.clearCredential()
		m.expire()
		return newError(ErrCodeDecodeFailed, err)
	}

	identity := identityFrom(claims, auth.TokenResponse{})
	m.logger.Info().Str("user", identity.ID).Msg("session restored")
	m.publish(Session{Status: SessionAuthenticated, Identity: &identity})
	return nil
}

// expire publishes the transient error state followed by anonymous.
func (m *SessionManager) expire() {
	m.publish(Session{Status: SessionError, LastError: sessionExpiredNotice})
	m.publish(Session{Status: SessionAnonymous, LastError: sessionExpiredNotice})
}

func (m *SessionManager) clearCredential() {
	if err := m.store.Clear(); err != nil {
		m.logger.Warn().Err(err).Msg("clearing credential store")
	}
}

func identityFrom(claims auth.Claims, resp auth.TokenResponse) Identity {
	name := strings.TrimSpace(claims.Name)
	if name == "" {
		name = strings.TrimSpace(claims.GivenName + " " + claims.FamilyName)
	}
	if name == "" {
		name = strings.TrimSpace(resp.GivenName + " " + resp.FamilyName)
	}
	email := claims.Email
	if email == "" {
		email = resp.Email
	}
	return Identity{
		ID:          claims.SubjectID,
		Email:       email,
		Role:        RoleFromID(claims.RoleID),
		DisplayName: name,
	}
}

func classifyLoginErr(err error) error {
	var apiErr auth.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusBadRequest, http.StatusUnauthorized:
			return newError(ErrCodeInvalidCredentials, err)
		case http.StatusTooManyRequests:
			return newError(ErrCodeRateLimited, err)
		}
	}
	return newError(ErrCodeConnection, err)
}

func classifyRefreshErr(err error) error {
	var apiErr auth.Error
	if errors.As(err, &apiErr) {
		return newError(ErrCodeRefreshExhausted, err)
	}
	return newError(ErrCodeConnection, err)
}
