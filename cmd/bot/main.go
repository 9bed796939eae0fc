package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"taotip-bot/internal/bot"
	"taotip-bot/internal/chain"
	"taotip-bot/internal/config"
	"taotip-bot/internal/database"
	"taotip-bot/internal/ledger"
	"taotip-bot/internal/worker"
)

func main() {
	cfg := config.LoadConfig()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Could not create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// Chain gateway; a dead endpoint disables chain operations instead of
	// killing the process.
	var chainClient *chain.Client
	if probe := chain.NewClient(cfg.ChainEndpoint(), cfg.ColdkeySecret); probe.TestConnection(ctx) {
		chainClient = probe
		logger.Info("connected to chain", zap.String("network", chainClient.Network()))
	} else {
		logger.Error("can't connect to chain node, chain operations disabled",
			zap.String("endpoint", cfg.ChainEndpoint()))
	}

	// Ledger store, attempted independently of the chain.
	var ledgerClient *ledger.Ledger
	if db, err := database.ConnectPostgres(cfg, logger); err != nil {
		logger.Error("can't connect to ledger database, ledger operations disabled", zap.Error(err))
	} else {
		var gateway ledger.ChainGateway
		if chainClient != nil {
			gateway = chainClient
		}
		ledgerClient = ledger.New(db, gateway, logger)
	}

	rdb, err := database.ConnectRedis(cfg, logger)
	if err != nil {
		logger.Warn("redis unavailable, welcome retry backoff disabled", zap.Error(err))
	}

	tgBot, err := bot.NewBot(cfg.BotToken, nil, logger)
	if err != nil {
		logger.Fatal("could not create bot", zap.Error(err))
	}

	messenger := bot.NewTelegramMessenger(tgBot.Instance)

	orchestrator := &bot.Orchestrator{
		Messenger:  messenger,
		Maintainer: cfg.Maintainer,
		HelpStr:    cfg.HelpStr,
		Log:        logger,
	}
	if ledgerClient != nil {
		orchestrator.Ledger = ledgerClient
	}
	tgBot.Orchestrator = orchestrator

	// Best-effort custodial balance report, only when both collaborators
	// came up.
	if chainClient != nil && ledgerClient != nil {
		bot.ReportCustodialBalance(ctx, chainClient, ledgerClient, logger)
	}

	welcomer := worker.NewWelcomer(nil, messenger, nil, cfg.CommunityChatID, cfg.HelpStr, cfg.ExportURL, logger)
	if ledgerClient != nil {
		welcomer.Roster = ledgerClient
	}
	if rdb != nil {
		welcomer.Attempts = rdb
	}

	logger.Info("Service started successfully")
	tgBot.Start(ctx, func() {
		go welcomer.Run(ctx)
	})
}
