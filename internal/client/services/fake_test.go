package services

import (
	"context"
	"sync"
	"testing"

	"github.com/credlink/credlink/internal/client/api"
	"github.com/credlink/credlink/internal/client/models"
	"github.com/credlink/credlink/internal/client/repositories/kv"
	"github.com/credlink/credlink/internal/common"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a hand-rolled api.Client. Only the function fields a test
// configures are callable; everything else fails loudly so an unexpected
// network call shows up as a test failure.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	loginFn         func(in api.Credentials) (*models.User, error)
	registerFn      func(in api.Registration) (*models.User, error)
	getProfileFn    func(token string) (*models.User, error)
	updateDIDFn     func(token, userID string, addr *string) (*models.User, error)
	getAvatarFn     func(token string) (*models.Avatar, error)
	uploadAvatarFn  func(token string, asset models.PhotoAsset) (*models.Avatar, error)
	deleteAvatarFn  func(token, id string) error
	uploadPhotoFn   func(token string, asset models.PhotoAsset) (*models.PhotoAsset, error)
	listPhotosFn    func(token string) ([]models.PhotoAsset, error)
	deletePhotoFn   func(token, id string) error
	listRequestsFn  func(token string) ([]models.VerificationRequest, error)
	createRequestFn func(token string, in api.CreateRequestInput) (*models.VerificationRequest, error)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: map[string]int{}}
}

func (f *fakeAPI) record(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeAPI) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func unexpectedCall(name string) error {
	return common.Newf(common.CodeInternal, "unexpected %s call", name)
}

func (f *fakeAPI) Login(_ context.Context, in api.Credentials) (*models.User, error) {
	f.record("login")
	if f.loginFn == nil {
		return nil, unexpectedCall("login")
	}
	return f.loginFn(in)
}

func (f *fakeAPI) Register(_ context.Context, in api.Registration) (*models.User, error) {
	f.record("register")
	if f.registerFn == nil {
		return nil, unexpectedCall("register")
	}
	return f.registerFn(in)
}

func (f *fakeAPI) GetProfile(_ context.Context, token string) (*models.User, error) {
	f.record("get_profile")
	if f.getProfileFn == nil {
		return nil, unexpectedCall("get_profile")
	}
	return f.getProfileFn(token)
}

func (f *fakeAPI) UpdateDID(_ context.Context, token, userID string, addr *string) (*models.User, error) {
	f.record("update_did")
	if f.updateDIDFn == nil {
		return nil, unexpectedCall("update_did")
	}
	return f.updateDIDFn(token, userID, addr)
}

func (f *fakeAPI) GetAvatar(_ context.Context, token string) (*models.Avatar, error) {
	f.record("get_avatar")
	if f.getAvatarFn == nil {
		return nil, unexpectedCall("get_avatar")
	}
	return f.getAvatarFn(token)
}

func (f *fakeAPI) UploadAvatar(_ context.Context, token string, asset models.PhotoAsset) (*models.Avatar, error) {
	f.record("upload_avatar")
	if f.uploadAvatarFn == nil {
		return nil, unexpectedCall("upload_avatar")
	}
	return f.uploadAvatarFn(token, asset)
}

func (f *fakeAPI) DeleteAvatar(_ context.Context, token, id string) error {
	f.record("delete_avatar")
	if f.deleteAvatarFn == nil {
		return unexpectedCall("delete_avatar")
	}
	return f.deleteAvatarFn(token, id)
}

func (f *fakeAPI) UploadPhoto(_ context.Context, token string, asset models.PhotoAsset) (*models.PhotoAsset, error) {
	f.record("upload_photo")
	if f.uploadPhotoFn == nil {
		return nil, unexpectedCall("upload_photo")
	}
	return f.uploadPhotoFn(token, asset)
}

func (f *fakeAPI) ListPhotos(_ context.Context, token string) ([]models.PhotoAsset, error) {
	f.record("list_photos")
	if f.listPhotosFn == nil {
		return nil, unexpectedCall("list_photos")
	}
	return f.listPhotosFn(token)
}

func (f *fakeAPI) DeletePhoto(_ context.Context, token, id string) error {
	f.record("delete_photo")
	if f.deletePhotoFn == nil {
		return unexpectedCall("delete_photo")
	}
	return f.deletePhotoFn(token, id)
}

func (f *fakeAPI) ListMyRequests(_ context.Context, token string) ([]models.VerificationRequest, error) {
	f.record("list_requests")
	if f.listRequestsFn == nil {
		return nil, unexpectedCall("list_requests")
	}
	return f.listRequestsFn(token)
}

func (f *fakeAPI) CreateRequest(_ context.Context, token string, in api.CreateRequestInput) (*models.VerificationRequest, error) {
	f.record("create_request")
	if f.createRequestFn == nil {
		return nil, unexpectedCall("create_request")
	}
	return f.createRequestFn(token, in)
}

func (f *fakeAPI) Close() error { return nil }

var _ api.Client = (*fakeAPI)(nil)

func testUser(token string) *models.User {
	return &models.User{
		ID:       "u1",
		Name:     "Ann",
		Email:    "a@b.com",
		Token:    token,
		Verified: models.VerifiedNone,
	}
}

// loggedInSession logs a test user in against the fake so that services
// depending on an active session can run.
func loggedInSession(t *testing.T, f *fakeAPI) (*SessionStore, kv.Repository) {
	t.Helper()

	repo := kv.NewMemoryRepository()
	store := NewSessionStore(repo, f, nil)

	f.loginFn = func(api.Credentials) (*models.User, error) {
		return testUser("t1"), nil
	}
	_, err := store.Login(context.Background(), api.Credentials{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)
	return store, repo
}

// fakeWallet is an in-memory WalletSession.
type fakeWallet struct {
	mu              sync.Mutex
	connected       bool
	addr            string
	openErr         error
	openCalls       int
	disconnectCalls int
}

func (w *fakeWallet) Open(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.openCalls++
	if w.openErr != nil {
		return w.openErr
	}
	w.connected = true
	return nil
}

func (w *fakeWallet) IsConnected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

func (w *fakeWallet) Address() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		return ""
	}
	return w.addr
}

func (w *fakeWallet) Disconnect(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.disconnectCalls++
	w.connected = false
	return nil
}

var _ WalletSession = (*fakeWallet)(nil)
