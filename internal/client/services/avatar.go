package services

import (
	"context"
	"sync"

	"github.com/credlink/credlink/internal/client/api"
	"github.com/credlink/credlink/internal/client/cache"
	"github.com/credlink/credlink/internal/client/metrics"
	"github.com/credlink/credlink/internal/client/models"
	"github.com/credlink/credlink/internal/client/repositories/kv"
	"github.com/credlink/credlink/internal/common"
	"github.com/credlink/credlink/internal/logging"
)

// AvatarService owns the single authoritative avatar record per account:
// local-first reads, write-through on upload, optimistic preview while an
// upload is in flight.
type AvatarService struct {
	api     api.Client
	session *SessionStore
	cache   *cache.Resource[models.Avatar]
	log     logging.Logger
	metrics *metrics.Metrics

	// uploadMu sequences uploads so a slow first upload can not be
	// overwritten by the response of a faster second one.
	uploadMu sync.Mutex

	mu      sync.RWMutex
	preview string
}

// NewAvatarService wires the avatar cache. It registers a logout hook on
// the session store to drop the transient preview.
func NewAvatarService(client api.Client, session *SessionStore, repo kv.Repository, log logging.Logger, m *metrics.Metrics) *AvatarService {
	if log == nil {
		log = logging.NewNopLogger()
	}
	s := &AvatarService{
		api:     client,
		session: session,
		cache:   cache.New[models.Avatar]("avatar", repo, log, m),
		log:     log,
		metrics: m,
	}
	session.OnLogout(s.resetPreview)
	return s
}

func (s *AvatarService) cacheKey(userID string) string {
	return avatarCachePrefix + userID
}

// Get returns the avatar, reading the local cache first. With no active
// session it returns (nil, nil): absence, not an error. A backend without
// an avatar for this account also yields (nil, nil).
func (s *AvatarService) Get(ctx context.Context) (*models.Avatar, error) {
	user := s.session.CurrentUser()
	if user == nil || user.Token == "" {
		return nil, nil
	}

	avatar, err := s.cache.Get(ctx, s.cacheKey(user.ID), func(ctx context.Context) (*models.Avatar, error) {
		a, err := s.api.GetAvatar(ctx, user.Token)
		if err != nil {
			if common.HasCode(err, common.CodeValidation) {
				// No avatar on record yet.
				return nil, nil
			}
			return nil, err
		}
		return a, nil
	})
	if err != nil {
		return nil, s.session.InvalidateOnAuthError(ctx, err)
	}
	return avatar, nil
}

// PreviewURI returns the optimistic local preview, or "" when no upload is
// in flight.
func (s *AvatarService) PreviewURI() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.preview
}

// DisplayURI is what the UI should render right now: the in-flight preview
// when present, otherwise the authoritative URI.
func (s *AvatarService) DisplayURI(ctx context.Context) (string, error) {
	if p := s.PreviewURI(); p != "" {
		return p, nil
	}
	avatar, err := s.Get(ctx)
	if err != nil || avatar == nil {
		return "", err
	}
	return avatar.URI, nil
}

// Upload replaces the avatar. The preview becomes visible before the
// network call starts. On success the authoritative record replaces the
// cache entry and the preview clears; on failure the preview clears and the
// prior record stays untouched.
func (s *AvatarService) Upload(ctx context.Context, asset models.PhotoAsset) (*models.Avatar, error) {
	user := s.session.CurrentUser()
	if user == nil || user.Token == "" {
		return nil, common.New(common.CodeMissingCredential, "not logged in")
	}

	s.uploadMu.Lock()
	defer s.uploadMu.Unlock()

	s.setPreview(asset.LocalURI)
	defer s.resetPreview()

	avatar, err := s.api.UploadAvatar(ctx, user.Token, asset)
	if err != nil {
		return nil, s.session.InvalidateOnAuthError(ctx, err)
	}

	if err := s.cache.Put(ctx, s.cacheKey(user.ID), avatar); err != nil {
		return nil, err
	}
	return avatar, nil
}

// Delete removes the avatar remotely, then drops the cache entry. A failed
// remote delete leaves the cache intact: local state never claims a
// deletion the server has not confirmed.
func (s *AvatarService) Delete(ctx context.Context, id string) error {
	user := s.session.CurrentUser()
	if user == nil || user.Token == "" {
		return common.New(common.CodeMissingCredential, "not logged in")
	}

	if err := s.api.DeleteAvatar(ctx, user.Token, id); err != nil {
		return s.session.InvalidateOnAuthError(ctx, err)
	}
	return s.cache.Clear(ctx, s.cacheKey(user.ID))
}

func (s *AvatarService) setPreview(uri string) {
	s.mu.Lock()
	s.preview = uri
	s.mu.Unlock()
}

func (s *AvatarService) resetPreview() {
	s.mu.Lock()
	s.preview = ""
	s.mu.Unlock()
}
