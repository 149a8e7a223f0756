package services

import (
	"context"
	"errors"
	"testing"

	"github.com/credlink/credlink/internal/client/api"
	"github.com/credlink/credlink/internal/client/models"
	"github.com/credlink/credlink/internal/client/repositories/kv"
	"github.com/credlink/credlink/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubUpdateDID(f *fakeAPI) {
	f.updateDIDFn = func(token, userID string, addr *string) (*models.User, error) {
		u := testUser(token)
		if addr != nil {
			did := "did:ethr:" + *addr
			u.DID = &did
		}
		return u, nil
	}
}

func TestWalletConnect_LinksOnce(t *testing.T) {
	ctx := context.Background()
	f := newFakeAPI()
	store, _ := loggedInSession(t, f)
	wallet := &fakeWallet{addr: "0xabc"}
	link := NewWalletLink(store, wallet, nil)
	stubUpdateDID(f)

	user, err := link.Connect(ctx)
	require.NoError(t, err)
	require.NotNil(t, user.DID)
	assert.Equal(t, "did:ethr:0xabc", *user.DID)
	assert.Equal(t, 1, f.callCount("update_did"))

	// re-invocations with the same address are no-ops
	for i := 0; i < 3; i++ {
		_, err = link.Connect(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, f.callCount("update_did"))
}

func TestWalletConnect_OpenFailure(t *testing.T) {
	f := newFakeAPI()
	store, _ := loggedInSession(t, f)
	wallet := &fakeWallet{openErr: errors.New("pairing rejected")}
	link := NewWalletLink(store, wallet, nil)

	_, err := link.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, common.HasCode(err, common.CodeNetwork))
	assert.Zero(t, f.callCount("update_did"))
}

func TestWalletConnect_NoAddress(t *testing.T) {
	f := newFakeAPI()
	store, _ := loggedInSession(t, f)
	wallet := &fakeWallet{addr: ""}
	link := NewWalletLink(store, wallet, nil)

	_, err := link.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, common.HasCode(err, common.CodeValidation))
	assert.Zero(t, f.callCount("update_did"))
}

func TestWalletSilentReconnect_OnSessionLoad(t *testing.T) {
	ctx := context.Background()
	f := newFakeAPI()
	store := NewSessionStore(kv.NewMemoryRepository(), f, nil)
	wallet := &fakeWallet{addr: "0xabc"}
	NewWalletLink(store, wallet, nil)

	f.loginFn = func(api.Credentials) (*models.User, error) {
		u := testUser("t1")
		did := "did:ethr:0xabc"
		u.DID = &did
		return u, nil
	}
	_, err := store.Login(ctx, api.Credentials{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)

	assert.Equal(t, 1, wallet.openCalls)
	assert.True(t, wallet.IsConnected())
	// the silent reconnect never re-proves ownership against the server
	assert.Zero(t, f.callCount("update_did"))
}

func TestWalletSilentReconnect_FailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	f := newFakeAPI()
	store := NewSessionStore(kv.NewMemoryRepository(), f, nil)
	wallet := &fakeWallet{openErr: errors.New("relay down")}
	NewWalletLink(store, wallet, nil)

	f.loginFn = func(api.Credentials) (*models.User, error) {
		u := testUser("t1")
		did := "did:ethr:0xabc"
		u.DID = &did
		return u, nil
	}
	_, err := store.Login(ctx, api.Credentials{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)

	assert.Equal(t, 1, wallet.openCalls)
	assert.False(t, wallet.IsConnected())
}

func TestWalletSilentReconnect_SkippedWithoutDID(t *testing.T) {
	f := newFakeAPI()
	store, _ := loggedInSession(t, f)
	wallet := &fakeWallet{addr: "0xabc"}
	NewWalletLink(store, wallet, nil)

	// loggedInSession already adopted a DID-less user; a late re-load must
	// not open the wallet either
	_, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Zero(t, wallet.openCalls)
}

func TestWalletUnlink(t *testing.T) {
	ctx := context.Background()
	f := newFakeAPI()
	store, _ := loggedInSession(t, f)
	wallet := &fakeWallet{addr: "0xabc"}
	link := NewWalletLink(store, wallet, nil)
	stubUpdateDID(f)

	_, err := link.Connect(ctx)
	require.NoError(t, err)

	user, err := link.Unlink(ctx)
	require.NoError(t, err)
	assert.Nil(t, user.DID)
	assert.Equal(t, 1, wallet.disconnectCalls)
	assert.False(t, wallet.IsConnected())

	// a later connect is a fresh link, not a cached no-op
	_, err = link.Connect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, f.callCount("update_did"))
}

func TestWalletLink_ResetOnLogout(t *testing.T) {
	ctx := context.Background()
	f := newFakeAPI()
	store, _ := loggedInSession(t, f)
	wallet := &fakeWallet{addr: "0xabc"}
	link := NewWalletLink(store, wallet, nil)
	stubUpdateDID(f)

	_, err := link.Connect(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Logout(ctx))

	// log back in; the previous link must not suppress the new UpdateDID
	_, err = store.Login(ctx, api.Credentials{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)
	_, err = link.Connect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.callCount("update_did"))
}
