// Command provascand runs the Provascan HTTP API server.
// Usage: provascand [-config path] [-addr host:port]
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/provascan/provascan/internal/app"
	"github.com/provascan/provascan/internal/logging"
	"github.com/provascan/provascan/internal/server"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config file")
		addr       = flag.String("addr", "", "HTTP listen address (overrides config)")
	)
	flag.Parse()

	logger := logging.NewStdoutLogger("provascand")

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		logger.Error("loading config", logging.Field{Key: "error", Value: err.Error()})
		os.Exit(1)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	srv, err := server.NewServer(server.Config{
		ListenAddr: cfg.ListenAddr,
		AppConfig:  cfg,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("constructing server", logging.Field{Key: "error", Value: err.Error()})
		os.Exit(1)
	}
	defer srv.Close()

	httpSrv := srv.HTTPServer()

	go func() {
		logger.Info("listening", logging.Field{Key: "addr", Value: cfg.ListenAddr})
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", logging.Field{Key: "error", Value: err.Error()})
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown", logging.Field{Key: "error", Value: err.Error()})
	}
}
