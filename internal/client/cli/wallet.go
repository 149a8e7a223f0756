package cli

import (
	"bufio"
	"context"
	"os"
	"strings"
	"sync"

	"github.com/credlink/credlink/internal/common"
)

// Wallet handles "wallet connect" and "wallet unlink".
func (a *App) Wallet(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: wallet [connect|unlink]")
		return nil
	}

	switch args[0] {
	case "connect":
		user, err := a.wallet.Connect(ctx)
		if err != nil {
			printlnFn("Wallet connect failed:", err.Error())
			return err
		}
		if user != nil && user.DID != nil {
			printlnFn("Wallet linked:", *user.DID)
		}
		return nil

	case "unlink":
		if _, err := a.wallet.Unlink(ctx); err != nil {
			printlnFn("Unlink failed:", err.Error())
			return err
		}
		printlnFn("Wallet unlinked")
		return nil

	default:
		printlnFn("Usage: wallet [connect|unlink]")
		return nil
	}
}

// promptWalletSession is the CLI stand-in for the wallet-connect provider:
// "opening" the session asks the operator to paste the wallet address the
// provider would have derived. The coordinator on top of it behaves exactly
// as it would against the real capability.
type promptWalletSession struct {
	mu      sync.Mutex
	address string
}

func newPromptWalletSession() *promptWalletSession {
	return &promptWalletSession{}
}

func (p *promptWalletSession) Open(ctx context.Context) error {
	reader := bufio.NewReader(os.Stdin)
	addr, err := getSimpleText(reader, "Enter wallet address", os.Stdout)
	if err != nil {
		return err
	}
	if strings.TrimSpace(addr) == "" {
		return common.New(common.CodeValidation, "empty wallet address")
	}

	p.mu.Lock()
	p.address = addr
	p.mu.Unlock()
	return nil
}

func (p *promptWalletSession) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.address != ""
}

func (p *promptWalletSession) Address() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.address
}

func (p *promptWalletSession) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	p.address = ""
	p.mu.Unlock()
	return nil
}
