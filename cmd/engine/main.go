// Package main runs the strategy engine: it loads a strategy document,
// wires storage and execution backends, and drives one runner per
// configured instance until all of them finish or a shutdown signal
// arrives.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"solana-strategy-engine/internal/config"
	"solana-strategy-engine/internal/domain"
	"solana-strategy-engine/internal/engine"
	"solana-strategy-engine/internal/executor"
	"solana-strategy-engine/internal/fees"
	"solana-strategy-engine/internal/observability"
	"solana-strategy-engine/internal/paper"
	"solana-strategy-engine/internal/posttrade"
	"solana-strategy-engine/internal/pricing"
	"solana-strategy-engine/internal/solana"
	"solana-strategy-engine/internal/storage"
	chstore "solana-strategy-engine/internal/storage/clickhouse"
	"solana-strategy-engine/internal/storage/memory"
	pgstore "solana-strategy-engine/internal/storage/postgres"
	"solana-strategy-engine/internal/wallet"
)

// Server holds the wired components of one engine process.
type Server struct {
	stores  *allStores
	queue   *posttrade.Queue
	configs []*domain.InstanceConfig
	runners []*engine.Runner
	logger  *log.Logger
}

// allStores holds every storage implementation the engine consumes.
type allStores struct {
	walletStore storage.WalletStore
	tradeStore  storage.TradeRecordStore
	ruleStore   storage.ExitRuleStore
	fillStore   storage.FillStore
}

func main() {
	// .env is optional; system environment wins on conflict.
	_ = godotenv.Load()

	strategyPath := flag.String("strategies", envOr("STRATEGY_FILE", "strategies.json"), "Strategy document path")
	queuePath := flag.String("queue", envOr("QUEUE_PATH", "posttrade-queue.json"), "Durable post-trade queue path")
	quoteURL := flag.String("quote-url", os.Getenv("QUOTE_URL"), "Quote service base URL")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional fill history)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	mints := flag.String("mints", os.Getenv("WATCHLIST_MINTS"), "Comma-separated candidate mint watchlist")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")
	drainInterval := flag.Duration("drain-interval", 10*time.Second, "Post-trade queue drain interval")

	flag.Parse()

	logger := log.New(os.Stdout, "[engine] ", log.LstdFlags|log.Lshortfile)

	if *quoteURL == "" {
		logger.Fatal("--quote-url is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	watchlist := splitMints(*mints)
	if len(watchlist) == 0 {
		logger.Fatal("no candidate mints configured, set --mints or WATCHLIST_MINTS")
	}

	instances, err := config.Load(*strategyPath)
	if err != nil {
		logger.Fatalf("Failed to load strategy document: %v", err)
	}
	logger.Printf("Loaded %d instance(s) from %s", len(instances), *strategyPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	queue, err := posttrade.Open(*queuePath, posttrade.DefaultActions(stores.ruleStore, nil))
	if err != nil {
		logger.Fatalf("Failed to open post-trade queue: %v", err)
	}

	session := wallet.NewSession()
	if err := armSessions(session, instances); err != nil {
		logger.Fatalf("Failed to arm wallet sessions: %v", err)
	}
	resolver := wallet.NewResolver(stores.walletStore, session, legacySecret())

	server := &Server{stores: stores, queue: queue, logger: logger}

	for _, cfg := range instances {
		runner, err := server.buildRunner(ctx, cfg, resolver, *quoteURL, watchlist)
		if err != nil {
			logger.Fatalf("Failed to wire instance %s: %v", cfg.InstanceID, err)
		}
		server.configs = append(server.configs, cfg)
		server.runners = append(server.runners, runner)
	}

	go server.startHTTPServer(*metricsAddr)
	go server.drainLoop(ctx, *drainInterval)

	for _, runner := range server.runners {
		runner.Start()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Printf("Received signal %v, initiating graceful shutdown...", sig)

	cancel()
	for _, runner := range server.runners {
		runner.Stop()
	}

	// One final drain so completed trades keep their side effects.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 30*time.Second)
	queue.ProcessAll(drainCtx)
	drainCancel()

	logger.Println("Shutdown complete")
}

// buildRunner wires the execution stack for one instance.
func (s *Server) buildRunner(ctx context.Context, cfg *domain.InstanceConfig, resolver *wallet.Resolver, quoteURL string, watchlist []string) (*engine.Runner, error) {
	cache := pricing.NewCache(pricing.DefaultCacheTTL)
	quotes := pricing.NewCachingProvider(pricing.NewHTTPProvider(quoteURL), cache, cfg.MaxPriceImpactPct)

	feeCtl := fees.NewController(feeConfig(cfg))

	backend, err := s.buildBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	exec, err := executor.New(executor.Options{
		Resolver: resolver,
		Quotes:   quotes,
		Fees:     feeCtl,
		Backend:  backend,
		Queue:    s.queue,
		Trades:   s.stores.tradeStore,
		Fills:    s.stores.fillStore,
	})
	if err != nil {
		return nil, err
	}

	signals := &watchlistSignals{mints: watchlist}
	return engine.NewRunner(cfg, signals, permissiveSafety{}, exec), nil
}

// buildBackend selects the paper engine or the live quorum broadcast.
func (s *Server) buildBackend(ctx context.Context, cfg *domain.InstanceConfig) (executor.Backend, error) {
	if cfg.Paper() {
		s.logger.Printf("Instance %s runs on the paper engine seed=%q", cfg.InstanceID, cfg.Seed)
		return paper.NewBackend(paper.NewEngine(), cfg), nil
	}

	urls := cfg.RPCEndpoints
	if cfg.PrivateRPCURL != "" {
		urls = append([]string{cfg.PrivateRPCURL}, urls...)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("live instance %s has no RPC endpoints", cfg.InstanceID)
	}

	endpoints := make([]solana.Endpoint, 0, len(urls))
	for _, u := range urls {
		endpoints = append(endpoints, solana.NewHTTPClient(u))
	}

	quorum, err := solana.NewQuorumClient(endpoints, cfg.RPCQuorum)
	if err != nil {
		return nil, fmt.Errorf("quorum for instance %s: %w", cfg.InstanceID, err)
	}
	return executor.NewLiveBackend(quorum), nil
}

// feeConfig maps instance fee settings onto controller curves. The
// adaptive ramp saturates at five times the base priority fee.
func feeConfig(cfg *domain.InstanceConfig) fees.Config {
	fc := fees.Config{
		MinPriceLamports: cfg.PriorityFeeLamports,
		Adaptive:         cfg.AutoPriorityFee,
	}
	if fc.Adaptive {
		fc.MaxPriceLamports = 5 * fc.MinPriceLamports
	}
	if cfg.UseJitoBundle {
		fc.TipLamports = cfg.JitoTipLamports
	}
	return fc
}

// createStores creates the storage implementations. ClickHouse is
// optional; without it fill history lands in memory only.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			walletStore: memory.NewWalletStore(),
			tradeStore:  memory.NewTradeRecordStore(),
			ruleStore:   memory.NewExitRuleStore(),
			fillStore:   memory.NewFillStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	stores := &allStores{
		walletStore: pgstore.NewWalletStore(pool),
		tradeStore:  pgstore.NewTradeRecordStore(pool),
		ruleStore:   pgstore.NewExitRuleStore(pool),
		fillStore:   memory.NewFillStore(),
	}

	cleanup := func() { pool.Close() }

	if clickhouseDSN != "" {
		chConn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		stores.fillStore = chstore.NewFillStore(chConn)
		cleanup = func() {
			chConn.Close()
			pool.Close()
		}
	}

	return stores, cleanup, nil
}

// armSessions loads the per-user key-encryption key from the environment
// and arms every (user, wallet) pair named by the strategy document.
// WALLET_KEK_HEX is shared across instances in this process model.
func armSessions(session *wallet.Session, instances []*domain.InstanceConfig) error {
	kekHex := os.Getenv("WALLET_KEK_HEX")
	if kekHex == "" {
		return nil // legacy-scheme wallets still resolve
	}

	kek, err := hex.DecodeString(kekHex)
	if err != nil {
		return fmt.Errorf("decode WALLET_KEK_HEX: %w", err)
	}

	for _, cfg := range instances {
		if err := session.Arm(cfg.UserID, cfg.WalletID, kek); err != nil {
			return fmt.Errorf("arm %s/%s: %w", cfg.UserID, cfg.WalletID, err)
		}
	}
	return nil
}

// legacySecret returns the direct-decryption secret for legacy-scheme
// wallets, if configured.
func legacySecret() []byte {
	if v := os.Getenv("WALLET_LEGACY_SECRET"); v != "" {
		return []byte(v)
	}
	return nil
}

// drainLoop periodically executes queued post-trade tasks.
func (s *Server) drainLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.queue.ProcessAll(ctx)
		}
	}
}

// startHTTPServer exposes health, metrics and instance status.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// InstanceStatus is one instance's entry in the /status response.
type InstanceStatus struct {
	InstanceID          string `json:"instance_id"`
	TradesExecuted      int    `json:"trades_executed"`
	OpenPositions       int    `json:"open_positions"`
	VolumeTodayLamports uint64 `json:"volume_today_lamports"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	Finished            bool   `json:"finished"`
	FinishedReason      string `json:"finished_reason,omitempty"`
}

// handleStatus returns per-instance counters as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	statuses := make([]InstanceStatus, 0, len(s.runners))
	for i, runner := range s.runners {
		state := runner.State()
		statuses = append(statuses, InstanceStatus{
			InstanceID:          s.configs[i].InstanceID,
			TradesExecuted:      state.TradesExecuted,
			OpenPositions:       state.OpenPositions,
			VolumeTodayLamports: state.VolumeTodayLamports,
			ConsecutiveFailures: state.ConsecutiveFailures,
			Finished:            state.Finished,
			FinishedReason:      state.FinishedReason,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":       "running",
		"queue_depth":  s.queue.Len(),
		"instances":    statuses,
		"generated_at": time.Now().UTC(),
	})
}

// watchlistSignals is a static candidate source. The real entry/exit
// signal layer lives outside this engine; a fixed watchlist keeps the
// tick loop exercisable without it.
type watchlistSignals struct {
	mints []string
}

func (s *watchlistSignals) Candidates(_ context.Context, _ *domain.InstanceConfig) ([]domain.Candidate, error) {
	candidates := make([]domain.Candidate, 0, len(s.mints))
	for _, mint := range s.mints {
		candidates = append(candidates, domain.Candidate{Mint: mint})
	}
	return candidates, nil
}

func (s *watchlistSignals) Evaluate(_ context.Context, _ *domain.InstanceConfig, _ domain.Candidate) (*domain.SignalReport, error) {
	return &domain.SignalReport{OK: true}, nil
}

// permissiveSafety accepts every mint. The content-safety checker is an
// external collaborator.
type permissiveSafety struct{}

func (permissiveSafety) Check(_ context.Context, _ string) (*domain.SafetyReport, error) {
	return &domain.SafetyReport{Passed: true}, nil
}

func splitMints(raw string) []string {
	var out []string
	for _, m := range strings.Split(raw, ",") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
