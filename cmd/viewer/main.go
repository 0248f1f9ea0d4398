package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/visionlink/internal/config"
	"github.com/ayusman/visionlink/internal/viewer"
)

func main() {
	log := logrus.New()

	cfg, err := config.LoadViewer(os.Args[1:], os.LookupEnv)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Log.Apply(log); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := viewer.New(cfg.Server(), log)
	if err := srv.ListenAndServe(ctx, cfg.Listen); err != nil {
		log.WithError(err).Fatal("viewer stopped")
	}
}
