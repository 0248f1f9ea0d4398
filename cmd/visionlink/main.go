package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/visionlink/internal/app"
	"github.com/ayusman/visionlink/internal/capture"
	"github.com/ayusman/visionlink/internal/config"
	"github.com/ayusman/visionlink/internal/detector"
	"github.com/ayusman/visionlink/internal/display"
	"github.com/ayusman/visionlink/internal/hook"
	"github.com/ayusman/visionlink/internal/transport"
)

func main() {
	log := logrus.New()

	cfg, err := config.Load(os.Args[1:], os.LookupEnv)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Log.Apply(log); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("visionlink stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	cam := capture.NewCamera(cfg.Camera.Device, cfg.Camera.Width, cfg.Camera.Height)
	if err := cam.Open(); err != nil {
		return err
	}
	defer cam.Close()

	det, err := detector.NewServiceDetector(cfg.Inference(), cfg.Detector.Script)
	if err != nil {
		return err
	}
	defer det.Close()

	var renderer display.Renderer = display.Discard{}
	if cfg.Window {
		renderer = display.NewWindow("visionlink")
	}
	defer renderer.Close()

	manager := hook.NewManager(cfg.HooksDir)
	if err := manager.Discover(); err != nil {
		log.WithError(err).Warn("hook discovery failed")
	}
	for _, h := range manager.List() {
		log.WithFields(logrus.Fields{
			"hook":     h.Manifest.Name,
			"gestures": h.Manifest.Gestures,
		}).Info("hook loaded")
	}
	runner := hook.NewRunner(manager, hook.NewExecutor(hook.DefaultTimeout), log)
	defer runner.Wait()

	link := transport.New(cfg.Server, log)

	session := app.New(cfg.Session(), app.Collaborators{
		Link:     link,
		Camera:   cam,
		Objects:  det,
		Hands:    det,
		Renderer: renderer,
		Events:   runner,
	}, log)

	return session.Run(ctx)
}
