package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"

	golog "github.com/ipfs/go-log"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh/terminal"
	"golang.org/x/sys/unix"

	"github.com/foxcpp/scandicd/internal/accept"
	"github.com/foxcpp/scandicd/internal/config"
	"github.com/foxcpp/scandicd/internal/dispatch"
	"github.com/foxcpp/scandicd/internal/registry"
)

func canUseConsoleLog() bool {
	return terminal.IsTerminal(int(os.Stderr.Fd()))
}

func newLogger(level string) (*zap.SugaredLogger, error) {
	lv, err := golog.LevelFromString(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	golog.SetAllLoggers(lv)

	var cfg zap.Config
	if canUseConsoleLog() {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.Sugar(), nil
}

func main() {
	cfgFile := flag.String("config", "", "Path to TOML configuration file")
	listenOverride := flag.String("listen", "", "Override listen address (host:port)")
	logLevel := flag.String("log-level", "", "Override configured log level")
	flag.Parse()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if *listenOverride != "" {
		cfg.Listen.Addrs = []string{*listenOverride}
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	reg := registry.New()
	d := dispatch.New(cfg.ServerName, cfg.MOTDPath, reg, log)

	srv, err := accept.Start(cfg, reg, d, log)
	if err != nil {
		log.Fatalw("failed to start listeners", "err", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, unix.SIGTERM, unix.SIGHUP)
	s := <-sig
	log.Infow("shutting down", "signal", s.String())

	srv.Shutdown()
}
