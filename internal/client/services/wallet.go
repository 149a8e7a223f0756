package services

import (
	"context"
	"sync"

	"github.com/credlink/credlink/internal/client/models"
	"github.com/credlink/credlink/internal/common"
	"github.com/credlink/credlink/internal/logging"
)

// WalletSession is the opaque wallet-connect capability. The transport
// protocol behind it is somebody else's problem; the coordinator only
// needs connect state and the derived address.
type WalletSession interface {
	// Open starts (or silently resumes) a wallet session. On return,
	// IsConnected and Address reflect the outcome.
	Open(ctx context.Context) error

	IsConnected() bool

	// Address returns the wallet-derived identifier, or "" while not
	// connected.
	Address() string

	Disconnect(ctx context.Context) error
}

// WalletLink bridges a WalletSession to the session store's DID field.
//
// On session load it attempts a silent reconnect when the account already
// carries a DID; failure there is logged, never surfaced, since a DID from
// a prior session is informational and read access does not require
// re-proving ownership. On an explicit connect it calls UpdateDID exactly
// once per connect action, no matter how often the UI polls.
type WalletLink struct {
	session *SessionStore
	wallet  WalletSession
	log     logging.Logger

	mu         sync.Mutex
	linkedAddr string
}

// NewWalletLink wires the coordinator and registers its session-loaded
// hook. Construct it before calling SessionStore.Load.
func NewWalletLink(session *SessionStore, wallet WalletSession, log logging.Logger) *WalletLink {
	if log == nil {
		log = logging.NewNopLogger()
	}
	w := &WalletLink{session: session, wallet: wallet, log: log}
	session.OnSessionLoaded(w.onSessionLoaded)
	session.OnLogout(w.reset)
	return w
}

// onSessionLoaded is the silent auto-reconnect: best effort, exactly once
// per logical load.
func (w *WalletLink) onSessionLoaded(ctx context.Context, user *models.User) {
	if user.DID == nil || *user.DID == "" {
		return
	}
	if w.wallet.IsConnected() {
		w.remember(w.wallet.Address())
		return
	}
	if err := w.wallet.Open(ctx); err != nil {
		w.log.Warn(ctx, "silent wallet reconnect failed", "err", err)
		return
	}
	w.remember(w.wallet.Address())
}

// Connect opens the wallet session on explicit user intent and links the
// resulting address to the account. Re-invocations with the same address
// (render loops, polling) are no-ops.
func (w *WalletLink) Connect(ctx context.Context) (*models.User, error) {
	if !w.wallet.IsConnected() {
		if err := w.wallet.Open(ctx); err != nil {
			return nil, common.Wrap(err, common.CodeNetwork, "wallet connect failed")
		}
	}

	addr := w.wallet.Address()
	if addr == "" {
		return nil, common.New(common.CodeValidation, "wallet session has no address")
	}

	w.mu.Lock()
	if w.linkedAddr == addr {
		w.mu.Unlock()
		return w.session.CurrentUser(), nil
	}
	w.mu.Unlock()

	user, err := w.session.UpdateDID(ctx, &addr)
	if err != nil {
		return nil, err
	}
	w.remember(addr)
	return user, nil
}

// Unlink disconnects the wallet and clears the DID on the account.
func (w *WalletLink) Unlink(ctx context.Context) (*models.User, error) {
	user, err := w.session.UpdateDID(ctx, nil)
	if err != nil {
		return nil, err
	}

	if err := w.wallet.Disconnect(ctx); err != nil {
		w.log.Warn(ctx, "wallet disconnect failed", "err", err)
	}
	w.reset()
	return user, nil
}

func (w *WalletLink) remember(addr string) {
	w.mu.Lock()
	w.linkedAddr = addr
	w.mu.Unlock()
}

func (w *WalletLink) reset() {
	w.mu.Lock()
	w.linkedAddr = ""
	w.mu.Unlock()
}
