// quotetest fetches one quote from the configured provider and prints it.
// Usage: go run ./cmd/quotetest --config configs/server.local.yaml AAPL
//
// Useful for verifying an API key before starting the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/mfeller/stocksim/internal/config"
	"github.com/mfeller/stocksim/internal/quote"
)

func main() {
	configPath := flag.String("config", "configs/server.local.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: quotetest [--config path] SYMBOL")
		os.Exit(2)
	}
	symbol := flag.Arg(0)

	godotenv.Load()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	client := quote.NewClient(
		cfg.Quote.BaseURL,
		cfg.Quote.APIKey,
		quote.WithLogger(logger),
		quote.WithTimeout(cfg.Quote.Timeout),
	)

	q, err := client.GetQuote(context.Background(), symbol)
	if err != nil {
		logger.Error("quote failed", "symbol", symbol, "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s: %s\n", q.Symbol, q.Price.StringFixed(2))
}
