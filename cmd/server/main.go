package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paravault/paravault/internal/engine"
	"github.com/paravault/paravault/pkg/config"
	"github.com/paravault/paravault/pkg/logger"
)

var (
	port           = flag.Int("port", 0, "HTTP port (overrides PARAVAULT_HTTP_PORT and configuration)")
	serviceVersion = "1.0.0"
)

func main() {
	flag.Parse()

	cfg := config.LoadFromEnv()
	if *port != 0 {
		os.Setenv("PARAVAULT_HTTP_PORT", flag.Lookup("port").Value.String())
	}

	lg := logger.New("paravault", serviceVersion)

	eng := engine.NewEngine(cfg)
	eng.SetLogger(lg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := eng.Start(ctx); err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}

	<-ctx.Done()
	lg.Infof("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := eng.Stop(shutdownCtx); err != nil {
		lg.Errorf("Error during shutdown: %v", err)
		os.Exit(1)
	}
	lg.Infof("Shutdown complete")
}
