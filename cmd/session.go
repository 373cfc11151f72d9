package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sparkagent-launchpad/config"
	"sparkagent-launchpad/pkg/backend"
	"sparkagent-launchpad/pkg/chain"
	"sparkagent-launchpad/pkg/history"
	"sparkagent-launchpad/pkg/log"
	"sparkagent-launchpad/pkg/market"
	"sparkagent-launchpad/pkg/wallet"
)

// needs says which parts of the environment a command uses
type needs int

const (
	needRPC needs = 1 << iota
	needContracts
	needSigner
)

// session is the per-invocation environment shared by commands
type session struct {
	cfg     *config.Config
	logger  *zap.Logger
	client  *chain.Client
	account *wallet.Account

	jsonOutput bool
	verbose    bool
}

func newSession(ctx context.Context, cmd *cobra.Command, n needs) (*session, error) {
	path, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	logger, err := log.Bootstrap(cfg.Log)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger, jsonOutput: jsonOutput, verbose: verbose}

	if n&(needContracts|needSigner) != 0 {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	if n&(needRPC|needContracts|needSigner) == 0 {
		return s, nil
	}

	opts := []chain.Option{chain.WithLogger(log.Named("chain"))}
	if n&needSigner != 0 {
		if err := cfg.RequireSigner(); err != nil {
			return nil, err
		}
		s.account, err = wallet.NewAccount(cfg.PrivateKey, cfg.ChainID)
		if err != nil {
			return nil, err
		}
		opts = append(opts, chain.WithSigner(s.account))
	}

	s.client, err = chain.Dial(ctx, cfg.RPCURL, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *session) Close() {
	if s.client != nil {
		s.client.Close()
	}
	log.Sync()
}

func (s *session) backend() *backend.Client {
	return backend.NewClient(s.cfg.BackendURL, s.cfg.APIKey,
		backend.WithFiatURL(s.cfg.FiatURL),
		backend.WithLogger(log.Named("backend")))
}

func (s *session) market() *market.Market {
	return market.New(s.client, s.cfg.Contracts,
		market.WithConversionStore(s.backend()),
		market.WithFiat(s.cfg.FiatSymbol, s.cfg.Currency),
		market.WithLogger(log.Named("market")))
}

// record appends to the history store; failures only warn
func (s *session) record(r *history.Record) {
	store, err := history.NewStore(s.cfg.HistoryPath)
	if err == nil {
		err = store.Add(r)
	}
	if err != nil {
		s.logger.Warn("failed to record history", zap.Error(err))
	}
}

// commandContext is cancelled on Ctrl+C
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// exitOnError prints err and exits non-zero
func exitOnError(err error) {
	if err != nil {
		printError(err)
		log.Sync()
		os.Exit(1)
	}
}

func shortHash(h string) string {
	if len(h) <= 14 {
		return h
	}
	return fmt.Sprintf("%s...%s", h[:8], h[len(h)-6:])
}

func since(t time.Time) string {
	return time.Since(t).Round(time.Second).String()
}
