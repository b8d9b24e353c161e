package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"anoa.com/isfportal/internal/config"
	"anoa.com/isfportal/internal/prefs"
	"anoa.com/isfportal/internal/relay"
	"anoa.com/isfportal/internal/session"
	"anoa.com/isfportal/internal/tui"
	"anoa.com/isfportal/internal/views"
	"anoa.com/isfportal/pkg/logger"
	"anoa.com/isfportal/pkg/platform"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "portal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		return err
	}

	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := os.OpenFile(filepath.Join(cfg.StateDir, "portal.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger.Configure(logger.Config{
		Level:  logger.LogLevel(cfg.LogLevel),
		Output: logFile,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := platform.New(cfg.APIURL,
		platform.WithSessionStorage(platform.NewFileSessionStorage(filepath.Join(cfg.StateDir, "session.yaml"))),
		platform.WithRefreshSchedule(cfg.RefreshSchedule),
	)
	if err != nil {
		return err
	}

	initCtx, cancelInit := context.WithTimeout(ctx, 15*time.Second)
	err = client.Auth.Initialize(initCtx)
	cancelInit()
	if err != nil {
		logger.Warn().Err(err).Msg("could not restore session")
	}

	if err := client.Auth.StartAutoRefresh(); err != nil {
		return err
	}
	defer client.Auth.StopAutoRefresh()

	store := session.NewStore()
	gateway := session.NewGateway(client.Auth, session.NewProfileFetcher(client), store)

	// No client timeout: replies stream for as long as the model writes.
	chat := relay.New(relay.NewHTTPInference(cfg.APIURL+"/api/chat", &http.Client{}))

	deps := tui.Deps{
		Store:    store,
		Auth:     gateway,
		Reader:   views.NewPlatformReader(client),
		Feed:     views.NewPlatformFeed(client),
		Writer:   views.NewPlatformWriter(client),
		Uploader: views.NewPlatformUploader(client),
		Relay:    chat,
		Prefs:    prefs.NewStore(cfg.StateDir),
	}

	logger.Info().Str("api", cfg.APIURL).Msg("portal starting")

	return runUI(ctx, deps, gateway)
}

func runUI(ctx context.Context, deps tui.Deps, gateway *session.Gateway) error {
	if err := gateway.Start(ctx); err != nil {
		return err
	}
	defer gateway.Close()
	return tui.Run(ctx, deps)
}
