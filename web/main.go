package main

import (
	"log/slog"
	"os"

	"github.com/df07/go-diffraction-glare/pkg/config"
	"github.com/df07/go-diffraction-glare/pkg/core"
	"github.com/df07/go-diffraction-glare/pkg/loaders"
	"github.com/df07/go-diffraction-glare/pkg/renderer"
	"github.com/df07/go-diffraction-glare/web/server"
	"github.com/spf13/pflag"
)

func main() {
	port := pflag.IntP("port", "p", 8080, "Port to serve on")
	configPath := pflag.StringP("config", "c", "", "Parameter file (.toml, .yaml or .json) for the defaults")
	workers := pflag.Int("workers", 0, "Number of render workers (0 = CPU count)")
	static := pflag.String("static", "static/", "Directory served at /")
	pflag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	core.SetLogger(logger)

	params := config.Default()
	if *configPath != "" {
		p, err := config.Load(*configPath)
		if err != nil {
			logger.Error("loading config", "err", err)
			os.Exit(1)
		}
		params = p
	}

	backend := renderer.NewCPUBackend(*workers)
	defer backend.Close()

	webServer := server.NewServer(*port, backend, config.NewMutableSource(params))
	webServer.SetStaticDir(*static)
	webServer.SetPSF(loaders.SourcePSF)

	if err := webServer.Start(); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
