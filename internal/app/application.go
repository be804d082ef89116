package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/provascan/provascan/internal/analyzer"
	"github.com/provascan/provascan/internal/logging"
	"github.com/provascan/provascan/internal/pixels"
	"github.com/provascan/provascan/internal/scorer"
	"github.com/provascan/provascan/internal/signature"
	"github.com/provascan/provascan/internal/store"
	"github.com/provascan/provascan/internal/webclient"
)

// Application is the global runtime state container. It constructs and owns
// the shared services (web client, store, analyzer, orchestrator) so the
// server and CLI wire against one object instead of package-level state.
type Application struct {
	Config *Config
	Logger logging.Logger
	Orch   *Orchestrator

	webClient webclient.WebClient
	store     *store.Store

	// internal context for cancellation / lifecycle
	ctx    context.Context
	cancel context.CancelFunc
}

// Options tweaks construction for callers that do not need the full stack.
type Options struct {
	// DisableStore skips opening the SQLite store; analyses are not
	// persisted. The CLI one-shot path uses this.
	DisableStore bool
}

// NewApplication constructs the full service graph from cfg. Pass a nil
// logger for the JSON stdout default.
func NewApplication(cfg *Config, logger logging.Logger, opts Options) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewStdoutLogger("provascan")
	}

	webclient.RegisterDefaultBackends()
	wc, err := webclient.New(cfg.WebClientConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("constructing web client: %w", err)
	}

	var st *store.Store
	if !opts.DisableStore {
		storageCfg := cfg.StoreConfig()
		storageCfg.StoragePath, err = expandPath(storageCfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("expanding storage path: %w", err)
		}
		st, err = store.Open(storageCfg, logger)
		if err != nil {
			wc.Close()
			return nil, fmt.Errorf("opening store: %w", err)
		}
	}

	catalog := signature.DefaultCatalog()
	pix := pixels.NewEngine(pixels.DefaultConfig(), logger)
	sc := scorer.New(scorer.DefaultConfig(), catalog, logger)
	an := analyzer.New(cfg.AnalyzerConfig(), wc, catalog, pix, sc, st, logger)

	ctx, cancel := context.WithCancel(context.Background())
	return &Application{
		Config:    cfg,
		Logger:    logger,
		Orch:      NewOrchestrator(cfg, an, logger),
		webClient: wc,
		store:     st,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Store returns the application's store; nil when persistence is disabled.
func (a *Application) Store() *store.Store { return a.store }

// Shutdown attempts a graceful shutdown, delegating to the orchestrator
// first, then releasing the web client and store.
func (a *Application) Shutdown(ctx context.Context) error {
	if a == nil {
		return errors.New("application is nil")
	}
	a.Logger.Info("application shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if a.Orch != nil {
		if err := a.Orch.Shutdown(shutdownCtx); err != nil {
			a.Logger.Info("orchestrator shutdown returned error",
				logging.Field{Key: "error", Value: err.Error()})
		}
	}

	if a.webClient != nil {
		a.webClient.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.Logger.Warn("closing store", logging.Field{Key: "error", Value: err.Error()})
		}
	}

	// cancel internal ctx to signal local components/tests
	a.cancel()

	return nil
}

func expandPath(p string) (string, error) {
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, p[1:]), nil
	}
	return p, nil
}
