// Package main runs the redistribution daemon: on a jittered interval it
// ranks holders of the tracked mint by realized loss, claims protocol
// revenue, acquires the token and splits it between the worst-off holder
// and destruction.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/lasthopeprotocol/hope-protocol/internal/cooldown"
	"github.com/lasthopeprotocol/hope-protocol/internal/distribute"
	"github.com/lasthopeprotocol/hope-protocol/internal/engine"
	"github.com/lasthopeprotocol/hope-protocol/internal/fees"
	"github.com/lasthopeprotocol/hope-protocol/internal/holders"
	"github.com/lasthopeprotocol/hope-protocol/internal/jupiter"
	"github.com/lasthopeprotocol/hope-protocol/internal/logger"
	"github.com/lasthopeprotocol/hope-protocol/internal/observability"
	"github.com/lasthopeprotocol/hope-protocol/internal/pnl"
	"github.com/lasthopeprotocol/hope-protocol/internal/solana"
	"github.com/lasthopeprotocol/hope-protocol/internal/storage"
	chstore "github.com/lasthopeprotocol/hope-protocol/internal/storage/clickhouse"
	"github.com/lasthopeprotocol/hope-protocol/internal/storage/memory"
	"github.com/lasthopeprotocol/hope-protocol/internal/storage/migrations"
	pgstore "github.com/lasthopeprotocol/hope-protocol/internal/storage/postgres"
	"github.com/lasthopeprotocol/hope-protocol/internal/wallet"
)

func main() {
	// Load .env file if present; real env vars win.
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint (optional, confirmation fast path)")
	mint := flag.String("mint", os.Getenv("TRACKED_MINT"), "Tracked token mint address")
	decimals := flag.Int("mint-decimals", 6, "Tracked mint decimals")
	operatorKey := flag.String("operator-key", os.Getenv("OPERATOR_PRIVATE_KEY"), "Operator private key, base58")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional, holder snapshots)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	excluded := flag.String("excluded", os.Getenv("EXCLUDED_ADDRESSES"), "Comma-separated addresses never eligible for distributions")
	curveProgram := flag.String("curve-program", fees.DefaultCurveProgramID, "Bonding-curve program ID")
	interval := flag.Duration("interval", 15*time.Minute, "Cycle interval")
	jitter := flag.Duration("jitter", 90*time.Second, "Maximum random deviation per interval")
	slippageBps := flag.Int("slippage-bps", 500, "Swap slippage tolerance in basis points")
	priorityFee := flag.Uint64("priority-fee", 10_000, "Priority fee per swap in lamports")
	gasReserve := flag.Uint64("gas-reserve", 10_000_000, "Lamports kept back for transaction fees")
	minClaim := flag.Uint64("min-claim", 5_000_000, "Minimum usable lamports; below this the cycle skips")
	incinerate := flag.Bool("incinerate", false, "Transfer the destroyed half to the incinerator instead of burning")
	confirmTimeout := flag.Duration("confirm-timeout", time.Minute, "Maximum wait for one transaction confirmation")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "info"), "Log level (trace, debug, info, warn, error)")

	flag.Parse()

	logger.Initialize(*logLevel)
	log := logger.ForComponent("redistributor")

	if *rpcEndpoint == "" {
		log.Fatal().Msg("--rpc-endpoint is required")
	}
	if *mint == "" {
		log.Fatal().Msg("--mint is required")
	}
	if *operatorKey == "" {
		log.Fatal().Msg("--operator-key is required")
	}
	if *postgresDSN == "" && !*useMemory {
		log.Fatal().Msg("--postgres-dsn is required unless --use-memory is set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	operator, err := wallet.Load(*operatorKey)
	if err != nil {
		log.Fatal().Err(err).Msg("loading operator key failed")
	}
	log.Info().Str("operator", operator.Address()).Str("mint", *mint).Msg("starting")

	rpc := solana.NewHTTPClient(*rpcEndpoint)

	// Startup probe: fail fast on a dead endpoint.
	slot, err := rpc.GetSlot(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("rpc endpoint unreachable")
	}
	log.Info().Int64("slot", slot).Msg("rpc endpoint healthy")

	var ws solana.WSClient
	if *wsEndpoint != "" {
		wsClient, err := solana.NewWSClient(ctx, *wsEndpoint, nil)
		if err != nil {
			log.Warn().Err(err).Msg("websocket unavailable, confirmations fall back to polling")
		} else {
			ws = wsClient
			defer wsClient.Close()
		}
	}

	cycles, snapshots, winStore, closeStores, err := buildStores(ctx, *useMemory, *postgresDSN, *clickhouseDSN, log)
	if err != nil {
		log.Fatal().Err(err).Msg("storage setup failed")
	}
	defer closeStores()

	exclusion := holders.NewExclusionPolicy(append(splitAddresses(*excluded), operator.Address())...)
	scanner := holders.NewScanner(rpc, *mint, *decimals)
	analyzer := pnl.NewAnalyzer(rpc, *mint, logger.ForComponent("pnl"))
	tracker := cooldown.NewStoreTracker(winStore)
	ranker := pnl.NewRanker(analyzer, exclusion, tracker)

	submitter := wallet.NewSubmitter(rpc, ws, operator, solana.CommitmentConfirmed, logger.ForComponent("submitter"),
		wallet.WithConfirmTimeout(*confirmTimeout))

	claimer := fees.NewClaimer(rpc, submitter, fees.Config{
		Mint:       *mint,
		ProgramID:  *curveProgram,
		GasReserve: *gasReserve,
		MinClaim:   *minClaim,
	}, logger.ForComponent("fees"))

	aggregator := jupiter.NewClient(logger.ForComponent("jupiter"))

	executor, err := distribute.NewExecutor(rpc, submitter, distribute.Config{
		Mint:       *mint,
		Decimals:   uint8(*decimals),
		Incinerate: *incinerate,
	}, logger.ForComponent("distribute"))
	if err != nil {
		log.Fatal().Err(err).Msg("distribution setup failed")
	}

	eng := engine.New(
		rpc, scanner, ranker, claimer, aggregator, submitter, executor,
		winStore, cycles, snapshots,
		engine.Config{
			Mint:                *mint,
			Operator:            operator.Address(),
			SlippageBps:         *slippageBps,
			PriorityFeeLamports: *priorityFee,
		},
		logger.ForComponent("engine"),
	)

	go serveMetrics(*metricsAddr, log)

	sched := engine.NewScheduler(eng, cycles, *interval, *jitter, logger.ForComponent("scheduler"))
	if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("scheduler failed")
	}
	log.Info().Msg("shut down")
}

// buildStores wires the configured storage backends. Holder snapshots go
// to ClickHouse when a DSN is given and to memory otherwise; cycle history
// and cooldown wins share the PostgreSQL instance.
func buildStores(ctx context.Context, useMemory bool, postgresDSN, clickhouseDSN string, log zerolog.Logger) (storage.CycleStore, storage.HolderSnapshotStore, storage.WinStore, func(), error) {
	if useMemory {
		log.Warn().Msg("using in-memory storage, history and cooldowns reset on restart")
		return memory.NewCycleStore(), memory.NewHolderSnapshotStore(), memory.NewWinStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	log.Info().Msg("postgres ready")

	var snapshots storage.HolderSnapshotStore = memory.NewHolderSnapshotStore()
	closeClickhouse := func() {}
	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		snapshots = chstore.NewHolderSnapshotStore(conn)
		closeClickhouse = func() { _ = conn.Close() }
		log.Info().Msg("clickhouse ready")
	}

	cleanup := func() {
		closeClickhouse()
		pool.Close()
	}
	return pgstore.NewCycleStore(pool), snapshots, pgstore.NewWinStore(pool), cleanup, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitAddresses(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func serveMetrics(addr string, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, "ok")
	})
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
	}
}
