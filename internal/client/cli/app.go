// Package cli implements the interactive command-line surface of the
// CredLink client. It plays the role the mobile screens play in the real
// app: translating user intents into service calls. All state logic lives
// in the services; the CLI only prompts, dispatches, and prints.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/credlink/credlink/internal/client/api"
	"github.com/credlink/credlink/internal/client/config"
	"github.com/credlink/credlink/internal/client/metrics"
	"github.com/credlink/credlink/internal/client/repositories/kv"
	"github.com/credlink/credlink/internal/client/services"
	"github.com/credlink/credlink/internal/logging"

	_ "modernc.org/sqlite"
)

// App wires the client services behind the REPL.
type App struct {
	config *config.Config
	log    logging.Logger

	db        *sql.DB
	apiClient api.Client

	session  *services.SessionStore
	avatars  *services.AvatarService
	requests *services.RequestsService
	wallet   *services.WalletLink

	// flow is the wizard in progress, nil between verifications.
	flow *services.VerificationFlow

	reader *bufio.Reader
}

// NewApp opens the local database and builds the service graph.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.NewText(os.Stderr, slog.LevelInfo)

	db, err := kv.OpenDatabase(ctx, cfg.LocalDBPath)
	if err != nil {
		log.Error(ctx, "failed to open local database", "err", err)
		return nil, err
	}
	store := kv.NewStore(db)

	m := metrics.New(nil)
	apiClient := api.NewHTTPClient(cfg.APIBaseURL,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithLogger(log),
		api.WithMetrics(m),
	)

	session := services.NewSessionStore(store, apiClient, log)
	avatars := services.NewAvatarService(apiClient, session, store, log, m)
	requests := services.NewRequestsService(apiClient, session, store, log, m)
	wallet := services.NewWalletLink(session, newPromptWalletSession(), log)

	return &App{
		config:    cfg,
		log:       log,
		db:        db,
		apiClient: apiClient,
		session:   session,
		avatars:   avatars,
		requests:  requests,
		wallet:    wallet,
		reader:    bufio.NewReader(os.Stdin),
	}, nil
}

// Run resolves any persisted session and enters the REPL.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	if user, err := a.session.Load(ctx); err != nil {
		if !services.IsNoSession(err) {
			a.log.Warn(ctx, "session load failed", "err", err)
		}
	} else {
		printlnFn("Welcome back,", user.Name)
	}

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)
}

// Close releases the API client and database handles.
func (a *App) Close() {
	_ = a.apiClient.Close()
	_ = a.db.Close()
}

func (a *App) isLoggedIn() bool {
	return a.session.CurrentUser() != nil
}

func (a *App) status() string {
	u := a.session.CurrentUser()
	if u == nil {
		return ""
	}
	s := u.Name
	if u.DID != nil && *u.DID != "" {
		s += " did"
	}
	s += " " + string(u.Verified)
	return "(" + s + ")"
}
