// Package services contains the application services of the CredLink
// client core: the session store, the avatar and verification-request
// caches, the verification submission flow, and the wallet link
// coordinator.
package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/credlink/credlink/internal/client/api"
	"github.com/credlink/credlink/internal/client/models"
	"github.com/credlink/credlink/internal/client/repositories/kv"
	"github.com/credlink/credlink/internal/common"
	"github.com/credlink/credlink/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// Persistence keys owned by the session store. No other component writes
// them.
const (
	keyToken = "session.token"
	keyUser  = "session.user"
)

// Prefixes of dependent caches cleared on logout. Logout is the one place
// another store's namespace is touched, and only ever to delete it, inside
// the same transaction that clears the session keys.
const (
	avatarCachePrefix   = "avatar.cache."
	requestsCachePrefix = "requests.cache."
)

// SessionLoadedHook runs after a session becomes available, exactly once
// per logical load (cold load or fresh login), never on re-reads.
type SessionLoadedHook func(ctx context.Context, user *models.User)

// SessionStore is the single source of truth for "who is logged in". It is
// an explicit, injectable instance with a defined lifecycle, not a
// process-wide singleton.
type SessionStore struct {
	repo kv.Repository
	api  api.Client
	log  logging.Logger

	group singleflight.Group

	mu          sync.RWMutex
	user        *models.User
	hookFired   bool
	loadedHooks []SessionLoadedHook
	logoutHooks []func()
}

// NewSessionStore builds a session store over the given persistence and
// remote API.
func NewSessionStore(repo kv.Repository, client api.Client, log logging.Logger) *SessionStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &SessionStore{repo: repo, api: client, log: log}
}

// OnSessionLoaded registers a hook fired once per logical session load.
// Register before calling Load.
func (s *SessionStore) OnSessionLoaded(h SessionLoadedHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadedHooks = append(s.loadedHooks, h)
}

// OnLogout registers a hook fired after the session is cleared. Used by
// services holding transient in-memory state (avatar preview).
func (s *SessionStore) OnLogout(h func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoutHooks = append(s.logoutHooks, h)
}

// CurrentUser returns the in-memory user, or nil when logged out.
func (s *SessionStore) CurrentUser() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Token returns the bearer token of the active session, or a
// missing-credential error when there is none. It never touches the
// network.
func (s *SessionStore) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.user != nil && s.user.Token != "" {
		token := s.user.Token
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	data, err := s.repo.Get(ctx, keyToken)
	if err != nil {
		return "", common.Wrap(err, common.CodeInternal, "failed to read token")
	}
	if len(data) == 0 {
		return "", common.New(common.CodeMissingCredential, "not logged in")
	}
	return string(data), nil
}

// Load resolves the current session: persisted user first (no network),
// then a stored token plus one remote profile fetch, otherwise
// common.ErrNoSession. Concurrent loads share one resolution.
func (s *SessionStore) Load(ctx context.Context) (*models.User, error) {
	v, err, _ := s.group.Do("load", func() (any, error) {
		return s.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.User), nil
}

func (s *SessionStore) load(ctx context.Context) (*models.User, error) {
	if u := s.CurrentUser(); u != nil {
		return u, nil
	}

	// Fast path: persisted user record, no network.
	if u := s.readLocalUser(ctx); u != nil {
		s.adopt(ctx, u)
		return u, nil
	}

	// Fallback: stored token, one profile fetch.
	data, err := s.repo.Get(ctx, keyToken)
	if err != nil {
		return nil, common.Wrap(err, common.CodeInternal, "failed to read token")
	}
	if len(data) == 0 {
		return nil, common.ErrNoSession
	}
	token := string(data)

	if tokenExpired(token) {
		s.log.Warn(ctx, "stored token expired, clearing session")
		_ = s.clear(ctx)
		return nil, common.ErrNoSession
	}

	u, err := s.api.GetProfile(ctx, token)
	if err != nil {
		if common.HasCode(err, common.CodeAuth) {
			_ = s.clear(ctx)
			return nil, common.ErrNoSession
		}
		return nil, err
	}
	if u.Token == "" {
		u.Token = token
	}

	if err := s.persist(ctx, u); err != nil {
		return nil, err
	}
	s.adopt(ctx, u)
	return u, nil
}

func (s *SessionStore) readLocalUser(ctx context.Context) *models.User {
	data, err := s.repo.Get(ctx, keyUser)
	if err != nil || len(data) == 0 {
		return nil
	}
	u, err := models.DecodeUser(data)
	if err != nil || u == nil {
		// Corrupt record: drop it and fall through to the token path.
		s.log.Warn(ctx, "dropping corrupt user record")
		_ = s.repo.Delete(ctx, keyUser)
		return nil
	}
	return u
}

// Login authenticates and persists the session. Errors come back already
// classified (auth vs network vs validation).
func (s *SessionStore) Login(ctx context.Context, creds api.Credentials) (*models.User, error) {
	u, err := s.api.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, u); err != nil {
		return nil, err
	}
	s.adopt(ctx, u)
	return u, nil
}

// Register creates an account and persists the resulting session.
func (s *SessionStore) Register(ctx context.Context, reg api.Registration) (*models.User, error) {
	u, err := s.api.Register(ctx, reg)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, u); err != nil {
		return nil, err
	}
	s.adopt(ctx, u)
	return u, nil
}

// Logout forgets everything: token, user record, and dependent caches, as
// one atomic operation from the caller's perspective.
func (s *SessionStore) Logout(ctx context.Context) error {
	if err := s.clear(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.user = nil
	s.hookFired = false
	hooks := append([]func(){}, s.logoutHooks...)
	s.mu.Unlock()

	for _, h := range hooks {
		h()
	}
	return nil
}

func (s *SessionStore) clear(ctx context.Context) error {
	clearAll := func(ctx context.Context, repo kv.Repository) error {
		if err := repo.Delete(ctx, keyToken); err != nil {
			return err
		}
		if err := repo.Delete(ctx, keyUser); err != nil {
			return err
		}
		if err := repo.DeletePrefix(ctx, avatarCachePrefix); err != nil {
			return err
		}
		return repo.DeletePrefix(ctx, requestsCachePrefix)
	}

	var err error
	if tx, ok := s.repo.(kv.Transactor); ok {
		err = tx.WithTx(ctx, clearAll)
	} else {
		err = clearAll(ctx, s.repo)
	}
	if err != nil {
		return common.Wrap(err, common.CodeInternal, "failed to clear session")
	}
	return nil
}

// UpdateDID links or unlinks the wallet-derived DID. The server is
// authoritative for the merge: its returned record replaces the local one.
func (s *SessionStore) UpdateDID(ctx context.Context, walletAddress *string) (*models.User, error) {
	current := s.CurrentUser()
	if current == nil || current.Token == "" {
		return nil, common.New(common.CodeMissingCredential, "not logged in")
	}

	updated, err := s.api.UpdateDID(ctx, current.Token, current.ID, walletAddress)
	if err != nil {
		return nil, s.InvalidateOnAuthError(ctx, err)
	}
	if updated.Token == "" {
		updated.Token = current.Token
	}

	if err := s.persist(ctx, updated); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.user = updated
	s.mu.Unlock()
	return updated, nil
}

// SetVerified records a server-reported change of the verification status.
func (s *SessionStore) SetVerified(ctx context.Context, status models.VerifiedStatus) error {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return common.New(common.CodeMissingCredential, "not logged in")
	}
	u := *s.user
	u.Verified = status
	s.user = &u
	s.mu.Unlock()

	return s.persist(ctx, &u)
}

// InvalidateOnAuthError clears the session when err is an auth failure and
// returns err unchanged. Services route every remote error through it so a
// 401 anywhere logs the user out.
func (s *SessionStore) InvalidateOnAuthError(ctx context.Context, err error) error {
	if err == nil || !common.HasCode(err, common.CodeAuth) {
		return err
	}
	s.log.Warn(ctx, "auth failure, invalidating session")

	if clearErr := s.clear(ctx); clearErr != nil {
		s.log.Error(ctx, "failed to clear invalidated session", "err", clearErr)
	}
	s.mu.Lock()
	s.user = nil
	s.hookFired = false
	hooks := append([]func(){}, s.logoutHooks...)
	s.mu.Unlock()
	for _, h := range hooks {
		h()
	}
	return err
}

// persist writes the token and user record together.
func (s *SessionStore) persist(ctx context.Context, u *models.User) error {
	data, err := u.Encode()
	if err != nil {
		return common.Wrap(err, common.CodeInternal, "failed to encode user")
	}

	write := func(ctx context.Context, repo kv.Repository) error {
		if err := repo.Set(ctx, keyToken, []byte(u.Token)); err != nil {
			return err
		}
		return repo.Set(ctx, keyUser, data)
	}

	if tx, ok := s.repo.(kv.Transactor); ok {
		err = tx.WithTx(ctx, write)
	} else {
		err = write(ctx, s.repo)
	}
	if err != nil {
		return common.Wrap(err, common.CodeInternal, "failed to persist session")
	}
	return nil
}

// adopt installs the user in memory and fires the loaded hooks once.
func (s *SessionStore) adopt(ctx context.Context, u *models.User) {
	s.mu.Lock()
	s.user = u
	fire := !s.hookFired
	s.hookFired = true
	hooks := append([]SessionLoadedHook{}, s.loadedHooks...)
	s.mu.Unlock()

	if !fire {
		return
	}
	for _, h := range hooks {
		h(ctx, u)
	}
}

// tokenExpired inspects the bearer token's exp claim without verifying the
// signature (the server remains the authority; this only lets the client
// fail fast instead of burning a doomed network call). Opaque non-JWT
// tokens are treated as live.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}

// IsNoSession reports the "logged out" load outcome, which is a state and
// not a failure.
func IsNoSession(err error) bool {
	return errors.Is(err, common.ErrNoSession)
}
