package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"proxysieve/internal/app"
	"proxysieve/internal/shared/config"
	"proxysieve/internal/shared/logger"
	"proxysieve/internal/shared/types"
)

func main() {
	configPath := flag.String("config", "configs/sieve.ini", "Path to sieve.ini")
	input := flag.String("input", "", "Local candidate list (overrides [source] local_file)")
	output := flag.String("output", "", "Output file (overrides [output] file)")
	batch := flag.Int("batch", 0, "Batch size (overrides [checker] batch_size)")
	remote := flag.Bool("remote", false, "Fetch candidates from [source] urls instead of the local file")
	flag.Parse()

	// 1. 默认值 -> ini -> 环境变量 -> 命令行
	cfg := config.Default()
	found, err := config.LoadIni(cfg, *configPath)
	if err != nil {
		// Use standard fmt before logger is initialized.
		fmt.Fprintf(os.Stderr, "Fatal: Failed to load config file '%s': %v\n", *configPath, err)
		os.Exit(1)
	}
	config.ApplyEnv(cfg)
	if *input != "" {
		cfg.SourceConf.LocalFile = *input
		cfg.SourceConf.Mode = types.SourceModeLocal
	}
	if *remote {
		cfg.SourceConf.Mode = types.SourceModeRemote
	}
	if *output != "" {
		cfg.OutputConf.File = *output
	}
	if *batch > 0 {
		cfg.CheckerConf.BatchSize = *batch
	}

	// 1.1 初始化日志系统
	if err := logger.Init(cfg.LogConf); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if !found {
		logger.Warn().Str("path", *configPath).Msg("Config file not found, using defaults.")
	}
	if err := config.Validate(cfg); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	// 2. 运行
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := app.New(cfg).Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("Run failed")
		stop()
		os.Exit(1)
	}
	if summary != nil {
		fmt.Printf("Found %d working proxies!\n", summary.Verified)
	}
	if err != nil {
		ev := logger.Warn().Err(err)
		if summary != nil {
			ev = ev.Int("skipped", summary.Skipped)
		}
		ev.Msg("Run interrupted")
		stop()
		os.Exit(130)
	}
}
