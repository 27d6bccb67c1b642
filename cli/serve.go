package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"speedraw/config"
	"speedraw/credentials"
	"speedraw/encoder"
	"speedraw/failures"
	"speedraw/inference"
	"speedraw/job"
	"speedraw/logger"
	"speedraw/routes"
	"speedraw/storage"
	"speedraw/success"
	taskqueue "speedraw/taskQueue"
	writerbackends "speedraw/writerBackends"
)

// workerGrace is how long shutdown waits for the batch in progress.
const workerGrace = 30 * time.Second

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the batch HTTP service",
		Long: `Starts the HTTP API and the background worker that processes
submitted batches one at a time. Batches accepted before a restart resume
from the durable queue in the data directory.`,
		Example: `  # Start on the default address (SPEEDRAW_ADDR or :8080)
  speedraw serve

  # Start on a custom address
  speedraw serve --addr 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", config.GetListenAddr(), "Address to listen on")

	return cmd
}

// openStores opens every database and returns a function closing them.
func openStores() (func(), error) {
	var closers []func() error
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Errorf("Failed to close store: %v", err)
			}
		}
	}

	steps := []struct {
		name  string
		open  func() error
		close func() error
	}{
		{"credentials", func() error { return credentials.OpenDB(config.GetCredentialsDBPath()) }, credentials.CloseDB},
		{"failures", func() error { return failures.Init(config.GetFailuresDBPath()) }, failures.Close},
		{"success", func() error { return success.Init(config.GetSuccessDBPath()) }, success.Close},
		{"batch queue", func() error { return taskqueue.OpenBatchQueueDB(config.GetBatchQueueDBPath()) }, taskqueue.CloseBatchQueueDB},
	}
	for _, step := range steps {
		logger.Debugf("Initializing %s database", step.name)
		if err := step.open(); err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to initialize %s store: %w", step.name, err)
		}
		closers = append(closers, step.close)
		logger.Infof("%s database initialized successfully", step.name)
	}
	return closeAll, nil
}

// serviceTarget is where animations are published when a token names no
// storage key.
func serviceTarget() storage.Target {
	backend := config.GetStorageBackend()
	switch backend {
	case "local":
		return storage.Target{Backend: backend}
	case writerbackends.DirectServe:
		return storage.Target{Backend: backend, AccessInfo: map[string]string{"baseDir": config.GetDirectServeBaseDir()}}
	}

	key := config.GetStorageKey()
	if key == "" {
		logger.Warnf("Storage backend %s needs SPEEDRAW_STORAGE_KEY; animations stay local", backend)
		return storage.Target{Backend: "local"}
	}
	entry, err := credentials.GetCredentials(key)
	if err != nil {
		logger.Warnf("Storage key %s unusable (%v); animations stay local", key, err)
		return storage.Target{Backend: "local"}
	}
	return storage.Target{Backend: entry.Backend, AccessInfo: entry.AccessInfo}
}

func runServe(ctx context.Context, addr string) error {
	logger.Info("Starting speedraw server initialization")

	if len(config.GetJWTSecret()) < 32 {
		logger.Warn("SPEEDRAW_JWT_SECRET is unset or shorter than 32 bytes; authenticated routes will reject every token")
	}
	if err := os.MkdirAll(config.GetDataDir(), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	closeStores, err := openStores()
	if err != nil {
		return err
	}

	store, err := storage.NewStore(config.GetUploadsDir(), config.GetOutputsDir())
	if err != nil {
		closeStores()
		return err
	}

	encoder.RegisterDefaults(config.GetRenderCommand(), config.GetRenderURL(), encoder.HTTPOptions{Timeout: config.GetRenderTimeout()})
	renderer, err := encoder.Get(config.GetRendererName(), store)
	if err != nil {
		closeStores()
		return err
	}

	mgr := job.NewManager(config.GetJobsDir(), config.NewDefaultsFile(config.GetDefaultsFilePath()),
		job.NewRunnerFactory(job.Services{
			Store:      store,
			Inferencer: inference.NewClient(config.GetInferenceURL(), config.GetInferenceTimeout()),
			Renderer:   renderer,
			Target:     serviceTarget(),
		}))

	logger.Info("Restoring batches accepted before the last shutdown")
	if n, err := mgr.Restore(); err != nil {
		logger.Errorf("Failed to restore pending batches: %v", err)
	} else {
		logger.Infof("Restored %d pending batches", n)
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		mgr.ProcessPendingBatches(workerCtx)
		close(workerDone)
	}()
	go cleanupRoutine(workerCtx, config.GetRecordRetention())

	mux := http.NewServeMux()
	routes.NewServer(mgr, store).Register(mux)
	mux.Handle("/files/", http.StripPrefix("/files/", http.FileServer(http.Dir(config.GetDirectServeBaseDir()))))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("Speedraw server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Server shutdown failed: %v", err)
			runErr = err
		}
		cancel()
	case runErr = <-serverErr:
	}

	stopWorker()
	select {
	case <-workerDone:
		closeStores()
	case <-time.After(workerGrace):
		// stores stay open under the running batch; it resumes after restart
		logger.Warn("Batch still running at exit; it will run again on the next start")
	}
	logger.Info("Server stopped")
	return runErr
}

// cleanupRoutine periodically cleans up old success and failure records
func cleanupRoutine(ctx context.Context, maxAge time.Duration) {
	logger.Infof("Cleanup routine started - removing records older than %v every 24 hours", maxAge)
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Cleanup routine stopped due to context cancellation")
			return
		case <-ticker.C:
			cleanupRecords(maxAge)
		}
	}
}

func cleanupRecords(maxAge time.Duration) {
	logger.Info("Running scheduled cleanup of old records")
	if n, err := success.CleanupOldRecords(maxAge); err != nil {
		logger.Errorf("Failed to cleanup old success records: %v", err)
	} else {
		logger.Infof("Removed %d old success records", n)
	}
	if n, err := failures.CleanupOldRecords(maxAge); err != nil {
		logger.Errorf("Failed to cleanup old failure records: %v", err)
	} else {
		logger.Infof("Removed %d old failure records", n)
	}
}
