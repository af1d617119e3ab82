package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"videogen/internal/adapter/repo"
	"videogen/internal/domain"
	"videogen/internal/domain/jsoncfg"
	"videogen/internal/infra"
	"videogen/internal/infra/credentials"
	"videogen/internal/jobclient"
	"videogen/internal/metrics"
	"videogen/internal/providers/videogen"
	"videogen/internal/storage"
	"videogen/pkg/zip"
)

type runLine struct {
	Name   string `json:"name"`
	RunID  string `json:"run_id"`
	Handle string `json:"handle,omitempty"`
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Reason string `json:"reason,omitempty"`
	Polls  int    `json:"polls"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "videogen: %v\n", err)
		return 2
	}
	logger := infra.NewLogger(cfg.AppEnv)

	opts, err := parseOptions(args, cfg, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "videogen: %v\n", err)
		return 2
	}
	if opts.listPresets {
		for _, name := range jsoncfg.PresetNames() {
			fmt.Fprintln(stdout, name)
		}
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	book := &ledger{logger: &logger}
	apiKey := strings.TrimSpace(cfg.ServiceAPIKey)
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Error().Err(err).Msg("videogen: db connection failed")
			return 1
		}
		defer pool.Close()

		runner := infra.NewSQLRunner(pool, logger)
		runs := repo.NewRunRepository(runner)
		if err := runs.EnsureSchema(ctx); err != nil {
			logger.Error().Err(err).Msg("videogen: ensure schema failed")
			return 1
		}
		book.repo = runs
		creds := credentials.NewStore(runner)

		switch {
		case opts.saveAPIKey != "":
			if err := creds.SaveAPIKey(ctx, cfg.ServiceBaseURL, opts.saveAPIKey, "cli"); err != nil {
				logger.Error().Err(err).Msg("videogen: save api key failed")
				return 1
			}
			fmt.Fprintln(stdout, "api key saved")
			return 0
		case opts.forgetAPIKey:
			removed, err := creds.DeleteAPIKey(ctx, cfg.ServiceBaseURL)
			if err != nil {
				logger.Error().Err(err).Msg("videogen: forget api key failed")
				return 1
			}
			if !removed {
				fmt.Fprintln(stdout, "no api key stored")
				return 0
			}
			fmt.Fprintln(stdout, "api key removed")
			return 0
		case opts.history > 0:
			return printHistory(ctx, runs, opts.history, stdout, &logger)
		case opts.show != "":
			return printRun(ctx, runs, opts.show, stdout, &logger)
		}

		if apiKey == "" {
			stored, err := creds.APIKey(ctx, cfg.ServiceBaseURL)
			if err != nil {
				logger.Warn().Err(err).Msg("videogen: failed to load api key from store")
			}
			apiKey = stored
		}
	} else if cfg.RedisAddr != "" {
		client, err := infra.NewRedisClient(ctx, cfg)
		if err != nil {
			logger.Error().Err(err).Msg("videogen: redis connection failed")
			return 1
		}
		defer client.Close()

		runs := repo.NewRunRepositoryRedis(client)
		book.repo = runs
		switch {
		case opts.saveAPIKey != "" || opts.forgetAPIKey:
			fmt.Fprintln(stderr, "videogen: DATABASE_URL is required to store credentials")
			return 2
		case opts.history > 0:
			return printHistory(ctx, runs, opts.history, stdout, &logger)
		case opts.show != "":
			return printRun(ctx, runs, opts.show, stdout, &logger)
		}
	} else if opts.saveAPIKey != "" || opts.forgetAPIKey || opts.history > 0 || opts.show != "" {
		fmt.Fprintln(stderr, "videogen: DATABASE_URL or REDIS_ADDR is required for ledger commands")
		return 2
	}

	docs, err := opts.requests()
	if err != nil {
		fmt.Fprintf(stderr, "videogen: %v\n", err)
		return 2
	}

	if cfg.MetricsAddr != "" {
		r := chi.NewRouter()
		r.Handle("/metrics", metrics.Handler())
		metricsServer := infra.NewHTTPServer(cfg, cfg.MetricsAddr, r)
		metricsCtx, stopMetrics := context.WithCancel(ctx)
		metricsDone := make(chan struct{})
		go func() {
			defer close(metricsDone)
			logger.Info().Str("addr", metricsServer.Addr()).Msg("videogen: metrics listening")
			if err := metricsServer.Run(metricsCtx, 5*time.Second); err != nil {
				logger.Error().Err(err).Msg("videogen: metrics server failed")
			}
		}()
		defer func() {
			stopMetrics()
			<-metricsDone
		}()
	}

	transport, err := videogen.NewClient(videogen.Options{
		BaseURL:       cfg.ServiceBaseURL,
		APIKey:        apiKey,
		HTTPClient:    &http.Client{},
		Logger:        &logger,
		CreateTimeout: cfg.CreateTimeout,
		PollTimeout:   cfg.PollTimeout,
		FetchTimeout:  cfg.FetchTimeout,
	})
	if err != nil {
		logger.Error().Err(err).Msg("videogen: failed to configure client")
		return 2
	}
	client, err := jobclient.New(transport,
		jobclient.Config{PollInterval: opts.pollInterval, MaxWait: opts.maxWait},
		jobclient.WithLogger(&logger),
		jobclient.WithObserver(jobclient.MultiObserver{
			jobclient.LogObserver{Logger: &logger},
			metrics.Observer{},
		}),
	)
	if err != nil {
		logger.Error().Err(err).Msg("videogen: failed to configure job client")
		return 2
	}

	store, err := storage.NewFileStore(opts.outDir)
	if err != nil {
		logger.Error().Err(err).Msg("videogen: failed to configure output directory")
		return 1
	}

	items := make([]jobclient.BatchItem, 0, len(docs))
	for _, doc := range docs {
		req, err := doc.ToRequest()
		if err != nil {
			fmt.Fprintf(stderr, "videogen: %s: %v\n", doc.Name, err)
			return 2
		}
		id := uuid.NewString()
		book.start(ctx, id, doc)
		items = append(items, jobclient.BatchItem{ID: id, Name: doc.Name, Request: req, MaxWait: opts.maxWait})
	}

	logger.Info().
		Str("base_url", transport.BaseURL()).
		Int("jobs", len(items)).
		Int("concurrency", opts.concurrency).
		Msg("videogen: starting")

	var (
		mu    sync.Mutex
		paths = make(map[string]string, len(items))
	)
	enc := json.NewEncoder(stdout)
	results := jobclient.RunBatch(ctx, client, items, opts.concurrency,
		func(ctx context.Context, item jobclient.BatchItem, res *jobclient.Result, runErr error) error {
			var path string
			if runErr == nil {
				path, runErr = store.WriteArtifact(context.WithoutCancel(ctx), res.Artifact)
			}
			if runErr == nil {
				mu.Lock()
				paths[item.ID] = path
				mu.Unlock()
			}
			book.finish(ctx, item.ID, res, runErr, path)
			return runErr
		})

	failed := 0
	var bundle []zip.Asset
	for i, r := range results {
		line := runLine{Name: r.Name, RunID: items[i].ID, Status: "success"}
		if r.Result != nil {
			line.Handle = r.Result.Handle.String()
			line.Polls = r.Result.Polls
		}
		if r.Err != nil {
			failed++
			line.Status = "failed"
			line.Kind = domain.ClassifyError(r.Err)
			line.Reason = r.Err.Error()
		} else {
			line.Path = paths[items[i].ID]
			a := r.Result.Artifact
			bundle = append(bundle, zip.Asset{Filename: a.FileName(), MIME: a.ContentType, Data: a.Data, Modified: time.Now()})
		}
		_ = enc.Encode(line)
	}

	if opts.zipName != "" && len(bundle) > 0 {
		archive, err := zip.ArchiveAssets(bundle)
		if err == nil {
			_, err = store.Write(context.WithoutCancel(ctx), opts.zipName, archive)
		}
		if err != nil {
			logger.Error().Err(err).Str("zip", opts.zipName).Msg("videogen: bundle failed")
			return 1
		}
	}

	if failed > 0 {
		logger.Warn().Int("failed", failed).Int("total", len(results)).Msg("videogen: finished with failures")
		return 1
	}
	return 0
}
