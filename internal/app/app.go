package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/chalkcast/appserver/internal/observability"
	"github.com/chalkcast/appserver/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Clients  Clients
	Services Services
	Router   *gin.Engine

	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig(log)

	shutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: "appserver",
		Environment: cfg.Environment,
		SampleRatio: cfg.OtelSampleRatio,
	})

	clients, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	svcs, err := wireServices(log, cfg, clients)
	if err != nil {
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(svcs)
	mw := wireMiddleware(log, svcs)
	router := wireRouter(cfg, handlerset, mw)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Clients:      clients,
		Services:     svcs,
		Router:       router,
		otelShutdown: shutdown,
	}, nil
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("listening", "addr", a.Cfg.ListenAddr)
	return a.Router.Run(a.Cfg.ListenAddr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Clients.Eph != nil {
		_ = a.Clients.Eph.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
