package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/utxokit/utxokit/internal/config"
	"github.com/utxokit/utxokit/internal/explorer"
	"github.com/utxokit/utxokit/internal/http_api"
	"github.com/utxokit/utxokit/internal/models"
	"github.com/utxokit/utxokit/internal/notificator"
	"github.com/utxokit/utxokit/internal/repository"
	"github.com/utxokit/utxokit/internal/watcher"
	"github.com/utxokit/utxokit/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "utxokit",
		Usage: "Unified client for block explorer backends",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "provider", Aliases: []string{"r"}, Usage: "Explorer backend (esplora or mattercloud)"},
			&cli.StringFlag{Name: "network", Aliases: []string{"n"}, Usage: "Network (mainnet or testnet)"},
			&cli.StringFlag{Name: "base-url", Aliases: []string{"b"}, Usage: "Explorer base URL override"},
			&cli.StringFlag{Name: "auth-token", Aliases: []string{"a"}, Usage: "Explorer API key"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
		},
		Commands: []*cli.Command{
			{
				Name:  "utxos",
				Usage: "List the unspent outputs of one or more addresses",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "address", Usage: "Address to resolve (repeatable)", Required: true},
				},
				Action: runUtxos,
			},
			{
				Name:  "broadcast",
				Usage: "Broadcast a raw transaction in hex form",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "txhex", Usage: "Raw transaction hex", Required: true},
				},
				Action: runBroadcast,
			},
			{
				Name:  "fee",
				Usage: "Estimate the fee rate for a confirmation target",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "target", Usage: "Confirmation target in blocks", Value: 6},
				},
				Action: runFee,
			},
			{
				Name:  "tx",
				Usage: "Fetch a raw transaction by id",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "txid", Usage: "Transaction id", Required: true},
				},
				Action: runTx,
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and the address watcher",
				Action: runServe,
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

// loadConfig loads the environment configuration and applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %v", err)
	}

	if c.IsSet("provider") {
		cfg.Provider = c.String("provider")
	}
	if c.IsSet("network") {
		cfg.Network = c.String("network")
	}
	if c.IsSet("base-url") {
		cfg.BaseURL = c.String("base-url")
	}
	if c.IsSet("auth-token") {
		cfg.AuthToken = c.String("auth-token")
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup builds the pieces every command needs: config, logger, provider.
func setup(c *cli.Context) (*config.Config, *logger.Logger, models.Provider, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, nil, err
	}

	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %v", err)
	}

	provider, err := explorer.NewProvider(cfg.Provider, models.ProviderConfig{
		Network:   cfg.GetNetwork(),
		BaseURL:   cfg.BaseURL,
		AuthToken: cfg.AuthToken,
	}, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to construct provider: %v", err)
	}

	return cfg, log, provider, nil
}

func runUtxos(c *cli.Context) error {
	cfg, log, provider, err := setup(c)
	if err != nil {
		return err
	}
	defer log.Sync()

	app := watcher.NewWatcher(nil, provider, nil, log, cfg)
	outputs, err := app.UnspentOutputs(context.Background(), c.StringSlice("address"))
	if err != nil {
		return err
	}
	return printJSON(outputs)
}

func runBroadcast(c *cli.Context) error {
	_, log, provider, err := setup(c)
	if err != nil {
		return err
	}
	defer log.Sync()

	// No repository in one-shot mode; the journal only exists under serve.
	result, err := provider.Broadcast(context.Background(), c.String("txhex"))
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runFee(c *cli.Context) error {
	_, log, provider, err := setup(c)
	if err != nil {
		return err
	}
	defer log.Sync()

	estimate, err := provider.EstimateFee(context.Background(), c.Int("target"))
	if err != nil {
		return err
	}
	return printJSON(estimate)
}

func runTx(c *cli.Context) error {
	cfg, log, provider, err := setup(c)
	if err != nil {
		return err
	}
	defer log.Sync()

	app := watcher.NewWatcher(nil, provider, nil, log, cfg)
	txHex, err := app.Transaction(context.Background(), c.String("txid"))
	if err != nil {
		return err
	}
	fmt.Println(txHex)
	return nil
}

func runServe(c *cli.Context) error {
	cfg, log, provider, err := setup(c)
	if err != nil {
		return err
	}
	defer log.Sync()

	// Initialize database
	db, err := repository.NewPostgresDB(cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresHost, cfg.PostgresPort, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize notification channels
	var telNotif *notificator.TelegramNotificator
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		telNotif, err = notificator.NewTelegramNotificator(log, cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			return fmt.Errorf("failed to initialize telegram notificator: %v", err)
		}
	}
	var emailNotif *notificator.EmailNotificator
	if cfg.SMTPHost != "" && cfg.SMTPRecipient != "" {
		emailNotif = notificator.NewEmailNotificator(log, cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPSender, cfg.SMTPRecipient)
	}
	notif := notificator.NewNotificator(log, telNotif, emailNotif)

	// Create the application and the API server
	app := watcher.NewWatcher(db, provider, notif, log, cfg)
	apiServer := http_api.NewHTTPServer(app, cfg.APIPort, log)

	go apiServer.Start()
	// Start the polling loop
	app.Start()

	return nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
