// Package main ranks the current holders of the tracked mint by realized
// loss and prints the result. Read-only: nothing is claimed, bought or
// sent.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/lasthopeprotocol/hope-protocol/internal/cooldown"
	"github.com/lasthopeprotocol/hope-protocol/internal/holders"
	"github.com/lasthopeprotocol/hope-protocol/internal/jupiter"
	"github.com/lasthopeprotocol/hope-protocol/internal/logger"
	"github.com/lasthopeprotocol/hope-protocol/internal/pnl"
	"github.com/lasthopeprotocol/hope-protocol/internal/solana"
)

func main() {
	_ = godotenv.Load()

	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	mint := flag.String("mint", os.Getenv("TRACKED_MINT"), "Tracked token mint address")
	decimals := flag.Int("mint-decimals", 6, "Tracked mint decimals")
	excluded := flag.String("excluded", os.Getenv("EXCLUDED_ADDRESSES"), "Comma-separated addresses to exclude")
	limit := flag.Int("limit", 20, "Number of holders to print")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall deadline")
	logLevel := flag.String("log-level", "warn", "Log level")

	flag.Parse()

	logger.Initialize(*logLevel)
	log := logger.ForComponent("rank")

	if *rpcEndpoint == "" {
		log.Fatal().Msg("--rpc-endpoint is required")
	}
	if *mint == "" {
		log.Fatal().Msg("--mint is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rpc := solana.NewHTTPClient(*rpcEndpoint)

	price, err := jupiter.NewClient(log).Price(ctx, *mint)
	if err != nil {
		log.Warn().Err(err).Msg("price unavailable, ranking by spend")
		price = 0
	}

	scanner := holders.NewScanner(rpc, *mint, *decimals)
	holdings, err := scanner.Scan(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("scanning holders failed")
	}

	var excludedList []string
	for _, part := range strings.Split(*excluded, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			excludedList = append(excludedList, trimmed)
		}
	}

	ranker := pnl.NewRanker(
		pnl.NewAnalyzer(rpc, *mint, log),
		holders.NewExclusionPolicy(excludedList...),
		cooldown.NewMemoryTracker(),
	)

	ranked, err := ranker.Rank(ctx, holdings, price, 0)
	if err != nil {
		log.Fatal().Err(err).Msg("ranking failed")
	}

	fmt.Printf("holders: %d scanned, %d ranked, price %.10f SOL\n\n", len(holdings), len(ranked), price)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tWALLET\tBALANCE\tBOUGHT\tSPENT (SOL)\tPNL (SOL)")
	for i, r := range ranked {
		if i >= *limit {
			break
		}
		fmt.Fprintf(w, "%d\t%s\t%.4f\t%.4f\t%.6f\t%+.6f\n",
			i, r.Wallet, r.Balance, r.SwapBought, r.SwapSpent, r.PnL)
	}
	w.Flush()
}
