package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"videogen/internal/http/stubapi"
	"videogen/internal/infra"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	steps := flag.Int("steps", 3, "status polls before a job becomes terminal")
	failWith := flag.String("fail-with", "", "fail every job with this message")
	rateLimit := flag.Int("rate-limit", 0, "max job submissions per client per minute (0 disables)")
	artifactBytes := flag.Int("artifact-bytes", 64<<10, "size of generated artifacts")
	flag.Parse()

	app := stubapi.NewApp(stubapi.Options{
		APIKey:        cfg.ServiceAPIKey,
		Script:        stubapi.Script{StepsToComplete: *steps, FailWith: *failWith},
		RateLimit:     *rateLimit,
		RateWindow:    time.Minute,
		ArtifactBytes: *artifactBytes,
		Logger:        &logger,
	})

	server := infra.NewHTTPServer(cfg, net.JoinHostPort("", cfg.Port), stubapi.NewRouter(app))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("addr", server.Addr()).Int("steps", *steps).Msg("stubserver: listening")
	if err := server.Run(ctx, cfg.HTTPIdleTimeout); err != nil {
		logger.Error().Err(err).Msg("stubserver: http server failed")
		os.Exit(1)
	}
	logger.Info().Int("jobs", app.JobCount()).Msg("stubserver: stopped")
}
