package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"board-activity/internal/adapter/activityhttp"
	"board-activity/internal/di"
	"board-activity/internal/infra/config"
	"board-activity/internal/infra/logger"
)

func main() {
	// 1. Load environment (optional .env for local development)
	_ = godotenv.Load()

	// 2. Load Config
	cfg := config.Load()

	// 3. Initialize Logger
	log := logger.New()
	slog.SetDefault(log)

	// 4. Wire components
	components := di.NewApplicationComponents(cfg, log)

	// 5. HTTP server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())

	handler := activityhttp.NewHandler(
		components.Manager,
		components.Loader,
		components.Store,
		components.GroupClient,
		log,
	)
	handler.Register(e)

	// 6. Start Server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Info("Starting server", "addr", addr, "board_api", cfg.BoardAPIURL)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	// 7. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	components.Prefetcher.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
}
