package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"umbra/app"
	"umbra/config"
	"umbra/pkg/middleware"
	"umbra/router"

	authCtrlImp "umbra/pkg/auth/controllerImp"
	docCtrlImp "umbra/pkg/document/controllerImp"
	gapCtrlImp "umbra/pkg/gaps/controllerImp"
	graphCtrlImp "umbra/pkg/graph/controllerImp"
	healthCtrlImp "umbra/pkg/health/controllerImp"
	ingestCtrlImp "umbra/pkg/ingest/controllerImp"
	pubCtrlImp "umbra/pkg/publication/controllerImp"
	searchCtrlImp "umbra/pkg/search/controllerImp"
)

func main() {
	// 1) Config + logging
	cfg := config.Load()
	log := config.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	log.Info("starting umbra", "config", cfg)

	// 2) DB, providers, services
	a, err := app.New(cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3) Background jobs
	a.StartJobs(context.Background())

	// 4) Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echoMiddleware.CORS())
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// 5) Router
	router.New(e, router.Controllers{
		Auth:         authCtrlImp.NewAuthController(),
		Publications: pubCtrlImp.New(a.Publications),
		Search:       searchCtrlImp.New(a.Search),
		Graph:        graphCtrlImp.New(a.Graph),
		Gaps:         gapCtrlImp.New(a.Gaps),
		Documents:    docCtrlImp.New(a.Documents),
		Ingest:       ingestCtrlImp.New(a.Ingest),
		Health: healthCtrlImp.NewHealthCtrl(a.DB, healthCtrlImp.Status{
			LLMModel:   a.LLM.Model(),
			LLMEnabled: cfg.LLMEnabled(),
			EmbModel:   cfg.EmbModel,
			EmbEnabled: a.Emb != nil,
			EventsOn:   cfg.NATSURL != "",
			QueueDepth: a.Queue.Depth,
			QueueLimit: cfg.JobQueueSize,
		}),
	})

	// 6) Start
	go func() {
		log.Info("listening", "addr", ":"+cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	if err := a.Close(shutdownCtx); err != nil {
		log.Error("close", "error", err)
	}
}
