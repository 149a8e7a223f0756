package services

import (
	"context"
	"sort"

	"github.com/credlink/credlink/internal/client/api"
	"github.com/credlink/credlink/internal/client/cache"
	"github.com/credlink/credlink/internal/client/metrics"
	"github.com/credlink/credlink/internal/client/models"
	"github.com/credlink/credlink/internal/client/repositories/kv"
	"github.com/credlink/credlink/internal/common"
	"github.com/credlink/credlink/internal/logging"
)

// RequestsService owns the collection of the account's verification
// requests. Same cache contract as the avatar, with "union by id" in place
// of single-record replace: entries are appended on creation, statuses are
// overwritten by the server's copy on refresh, and nothing is ever deleted
// locally.
type RequestsService struct {
	api     api.Client
	session *SessionStore
	cache   *cache.Resource[[]models.VerificationRequest]
	log     logging.Logger
	metrics *metrics.Metrics
}

func NewRequestsService(client api.Client, session *SessionStore, repo kv.Repository, log logging.Logger, m *metrics.Metrics) *RequestsService {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &RequestsService{
		api:     client,
		session: session,
		cache:   cache.New[[]models.VerificationRequest]("requests", repo, log, m),
		log:     log,
		metrics: m,
	}
}

func (s *RequestsService) cacheKey(userID string) string {
	return requestsCachePrefix + userID
}

// List returns the request collection, local cache first. With no active
// session it returns an empty list.
func (s *RequestsService) List(ctx context.Context) ([]models.VerificationRequest, error) {
	user := s.session.CurrentUser()
	if user == nil || user.Token == "" {
		return nil, nil
	}

	list, err := s.cache.Get(ctx, s.cacheKey(user.ID), func(ctx context.Context) (*[]models.VerificationRequest, error) {
		remote, err := s.api.ListMyRequests(ctx, user.Token)
		if err != nil {
			return nil, err
		}
		sortRequests(remote)
		return &remote, nil
	})
	if err != nil {
		return nil, s.session.InvalidateOnAuthError(ctx, err)
	}
	if list == nil {
		return nil, nil
	}
	return *list, nil
}

// Refresh bypasses the cache for the server's current view and merges it
// into the local collection by id. The server copy wins for matching ids
// (it owns status transitions); locally-known entries the server has not
// listed are kept.
func (s *RequestsService) Refresh(ctx context.Context) ([]models.VerificationRequest, error) {
	user := s.session.CurrentUser()
	if user == nil || user.Token == "" {
		return nil, common.New(common.CodeMissingCredential, "not logged in")
	}

	remote, err := s.api.ListMyRequests(ctx, user.Token)
	if err != nil {
		return nil, s.session.InvalidateOnAuthError(ctx, err)
	}

	local, _ := s.List(ctx)
	merged := unionByID(local, remote)
	if err := s.cache.Put(ctx, s.cacheKey(user.ID), &merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// HasPending reports whether a request of the given type is still pending.
// This is the pre-submit existence check behind the one-pending-per-type
// invariant.
func (s *RequestsService) HasPending(ctx context.Context, t models.RequestType) (bool, error) {
	list, err := s.List(ctx)
	if err != nil {
		return false, err
	}
	for _, r := range list {
		if r.Type == t && r.Status == models.RequestPending {
			return true, nil
		}
	}
	return false, nil
}

// Create submits a new request and appends the server's record to the local
// collection. Callers are expected to have run the pre-submit existence
// check; the append still unions by id in case the server echoes a known
// record.
func (s *RequestsService) Create(ctx context.Context, in api.CreateRequestInput) (*models.VerificationRequest, error) {
	user := s.session.CurrentUser()
	if user == nil || user.Token == "" {
		return nil, common.New(common.CodeMissingCredential, "not logged in")
	}

	created, err := s.api.CreateRequest(ctx, user.Token, in)
	if err != nil {
		return nil, s.session.InvalidateOnAuthError(ctx, err)
	}

	local, _ := s.List(ctx)
	merged := unionByID(local, []models.VerificationRequest{*created})
	if err := s.cache.Put(ctx, s.cacheKey(user.ID), &merged); err != nil {
		return nil, err
	}
	return created, nil
}

// unionByID merges incoming entries into base. Incoming wins on id match;
// order is newest first.
func unionByID(base, incoming []models.VerificationRequest) []models.VerificationRequest {
	byID := make(map[string]int, len(base))
	merged := append([]models.VerificationRequest(nil), base...)
	for i, r := range merged {
		byID[r.ID] = i
	}
	for _, r := range incoming {
		if i, ok := byID[r.ID]; ok {
			merged[i] = r
			continue
		}
		byID[r.ID] = len(merged)
		merged = append(merged, r)
	}
	sortRequests(merged)
	return merged
}

func sortRequests(list []models.VerificationRequest) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}
