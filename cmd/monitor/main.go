package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"tgdash/internal/config"
	"tgdash/internal/controller"
	"tgdash/internal/logging"
	"tgdash/internal/poller"
	"tgdash/internal/tui"
)

func main() {
	configPath := flag.String("config", "tgdash.yaml", "configuration file")
	controllerAddr := flag.String("controller", "", "controller base URL, overrides controller.address")
	test := flag.String("test", "1", "test number shown first")
	logFile := flag.String("log-file", "tgdash-monitor.log", "log file; the terminal is taken by the monitor")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *controllerAddr != "" {
		cfg.Controller.Address = *controllerAddr
	}
	cfg.Log.File = *logFile

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	client, err := controller.NewClient(cfg.Controller.Address, cfg.Controller.Timeout, logger.Named("controller"))
	if err != nil {
		log.Fatalf("controller: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := poller.New(client, poller.Config{
		Statistics:     cfg.Poll.Statistics,
		TimeStatistics: cfg.Poll.TimeStatistics,
		Tests:          cfg.Poll.Tests,
		TimeLimit:      cfg.Poll.TimeLimit,
	}, logger.Named("poller"))

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go p.Run(pollCtx)

	if err := tui.NewDashboard(p, *test, logger.Named("tui")).Run(ctx); err != nil {
		logger.Error("monitor failed", zap.Error(err))
		log.Fatalf("monitor: %v", err)
	}
}
