package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/bimakw/holdings-reconciler/internal/application/services"
	"github.com/bimakw/holdings-reconciler/internal/bootstrap"
	"github.com/bimakw/holdings-reconciler/internal/config"
	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const usage = `usage: reconcile <command> [flags]

commands:
  summary       unified balance summary of one account
  net-transfer  net USD transfers of accounts over a time window
  transfers     token transfer history of one account

run "reconcile <command> -h" for the flags of a command`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, err := parseCommand(os.Args[1], os.Args[2:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := bootstrap.NewLogger(cfg.Log)
	defer logger.Sync()

	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := cmd.run(ctx, app)
	if err != nil {
		logger.Error("Command failed", zap.String("command", os.Args[1]), zap.Error(err))
		os.Exit(1)
	}

	if err := writeJSON(os.Stdout, result); err != nil {
		logger.Error("Failed to write result", zap.Error(err))
		os.Exit(1)
	}
}

// command is a parsed subcommand ready to run against the wired services
type command struct {
	run func(ctx context.Context, app *bootstrap.App) (interface{}, error)
}

func parseCommand(name string, args []string) (*command, error) {
	switch name {
	case "summary":
		req, err := parseSummary(args)
		if err != nil {
			return nil, err
		}
		return &command{run: func(ctx context.Context, app *bootstrap.App) (interface{}, error) {
			return app.Balances.GetUnifiedBalanceSummary(ctx, req)
		}}, nil

	case "net-transfer":
		req, err := parseNetTransfer(args)
		if err != nil {
			return nil, err
		}
		return &command{run: func(ctx context.Context, app *bootstrap.App) (interface{}, error) {
			if len(req.Accounts) == 1 {
				return app.NetTransfer.GetNetTransfer(ctx, req)
			}
			return app.NetTransfer.GetNetTransfers(ctx, req)
		}}, nil

	case "transfers":
		chainID, account, filter, err := parseTransfers(args)
		if err != nil {
			return nil, err
		}
		return &command{run: func(ctx context.Context, app *bootstrap.App) (interface{}, error) {
			return app.Transfers.GetTransfers(ctx, chainID, account, filter)
		}}, nil
	}

	return nil, fmt.Errorf("unknown command %q\n\n%s", name, usage)
}

func parseSummary(args []string) (services.SummaryRequest, error) {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	chainID := fs.Int64("chain", 1, "chain ID")
	account := fs.String("account", "", "account address")
	protocolList := fs.String("protocols", "", "comma-separated protocols, all when empty")
	items := fs.Bool("items", false, "include per-token items")
	if err := fs.Parse(args); err != nil {
		return services.SummaryRequest{}, err
	}
	if *account == "" {
		return services.SummaryRequest{}, errors.New("summary: -account is required")
	}

	return services.SummaryRequest{
		ChainID:      *chainID,
		Account:      *account,
		Protocols:    splitList(*protocolList),
		IncludeItems: *items,
	}, nil
}

func parseNetTransfer(args []string) (services.NetTransferRequest, error) {
	fs := flag.NewFlagSet("net-transfer", flag.ContinueOnError)
	chainID := fs.Int64("chain", 1, "chain ID")
	accounts := fs.String("accounts", "", "comma-separated account addresses")
	start := fs.String("start", "", "window start (unix seconds, unix ms or RFC 3339)")
	end := fs.String("end", "", "window end (unix seconds, unix ms or RFC 3339)")
	tokens := fs.String("tokens", "", "comma-separated token addresses")
	exclude := fs.String("exclude", "", "comma-separated counterparties to ignore")
	stableSymbols := fs.String("stable-symbols", "", "extra symbols valued at 1 USD")
	stableAddresses := fs.String("stable-addresses", "", "extra token addresses valued at 1 USD")
	breakdown := fs.Bool("breakdown", false, "include per-token breakdown")
	maxSpan := fs.Uint64("max-block-span", 0, "initial log query span, configured default when 0")
	if err := fs.Parse(args); err != nil {
		return services.NetTransferRequest{}, err
	}

	req := services.NetTransferRequest{
		ChainID:  *chainID,
		Accounts: splitList(*accounts),
		StableOverrides: entities.StableOverrides{
			Symbols:   splitList(*stableSymbols),
			Addresses: splitList(*stableAddresses),
		},
		ExcludeAddresses: splitList(*exclude),
		IncludeBreakdown: *breakdown,
		MaxBlockSpan:     *maxSpan,
	}
	if len(req.Accounts) == 0 {
		return req, errors.New("net-transfer: -accounts is required")
	}

	var err error
	if req.StartTime, err = services.ParseTimestamp(*start); err != nil {
		return req, fmt.Errorf("net-transfer: -start: %w", err)
	}
	if req.EndTime, err = services.ParseTimestamp(*end); err != nil {
		return req, fmt.Errorf("net-transfer: -end: %w", err)
	}

	for _, addr := range splitList(*tokens) {
		req.Tokens = append(req.Tokens, entities.TokenCandidate{Address: addr})
	}
	return req, nil
}

func parseTransfers(args []string) (int64, string, entities.TransferFilter, error) {
	fs := flag.NewFlagSet("transfers", flag.ContinueOnError)
	chainID := fs.Int64("chain", 1, "chain ID")
	account := fs.String("account", "", "account address")
	token := fs.String("token", "", "only transfers of this token")
	start := fs.String("start", "", "earliest transfer time, open when empty")
	end := fs.String("end", "", "latest transfer time, open when empty")
	page := fs.Int("page", 1, "page number")
	size := fs.Int("size", 100, "page size")
	if err := fs.Parse(args); err != nil {
		return 0, "", entities.TransferFilter{}, err
	}
	if *account == "" {
		return 0, "", entities.TransferFilter{}, errors.New("transfers: -account is required")
	}

	filter := entities.TransferFilter{
		TokenAddress: *token,
		Page:         *page,
		Size:         *size,
	}
	var err error
	if *start != "" {
		if filter.StartTime, err = services.ParseTimestamp(*start); err != nil {
			return 0, "", filter, fmt.Errorf("transfers: -start: %w", err)
		}
	}
	if *end != "" {
		if filter.EndTime, err = services.ParseTimestamp(*end); err != nil {
			return 0, "", filter, fmt.Errorf("transfers: -end: %w", err)
		}
	}

	return *chainID, *account, filter, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
