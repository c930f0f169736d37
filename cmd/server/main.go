package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/yurifrl/brokerfacts/pkg/config"
	"github.com/yurifrl/brokerfacts/pkg/server"
)

func main() {
	flags := pflag.NewFlagSet("brokerfacts-server", pflag.ExitOnError)
	cfgFile := flags.StringP("config", "c", "", "Config file (default is config.yaml)")
	flags.String("addr", ":8080", "Listen address")
	flags.String("cache-dir", "output", "Directory for generated CSV files")
	flags.StringSlice("dialect-file", nil, "Extra YAML dialect definition (repeatable)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("xls-charset", "cp1252", "Charset of legacy .xls workbooks")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Build(*cfgFile, flags)
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}
	logger := cfg.Logger("brokerfacts")

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build server", "err", err)
	}
	logger.Info("starting server", "addr", cfg.Addr)
	if err := srv.Start(cfg.Addr); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
