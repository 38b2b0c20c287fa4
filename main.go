// Command recview serves a directory tree of camera recordings over HTTP.
//
// The listing page at / shows folders and videos with their codec, /videos/
// streams files with Range support, and videos in a codec browsers cannot
// decode are converted to H.264 in the background on first request.
// Progress is polled at /status/ and POST /api/cache/clear empties the
// conversion cache. Prometheus metrics and /healthz are served on a separate
// port.
//
// Configuration comes from flags, environment variables and an optional
// config file; run with --help for the full list. SIGHUP reopens the log
// file, SIGINT and SIGTERM shut down gracefully.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"recview/internal/auth"
	"recview/internal/filesystem"
	"recview/internal/handlers"
	"recview/internal/logging"
	"recview/internal/memory"
	"recview/internal/metrics"
	"recview/internal/middleware"
	"recview/internal/startup"
	"recview/internal/transcoder"
	"recview/internal/workers"
)

func main() {
	cmd, err := newRootCommand()
	if err != nil {
		startup.LogFatal("Command setup error: %v", err)
	}
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() (*cobra.Command, error) {
	v := startup.NewViper()
	var cfgFile string

	cmd := &cobra.Command{
		Use:          "recview",
		Short:        "Browse, play and download camera recordings over HTTP",
		Long:         "recview serves a directory tree of recordings with in-browser playback, converting videos browsers cannot decode on first request.",
		Version:      startup.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := startup.ReadConfigFile(v, cfgFile); err != nil {
				return err
			}
			return logging.Configure(logging.Options{
				Level:   v.GetString("LOG_LEVEL"),
				File:    v.GetString("LOG_FILE"),
				Console: term.IsTerminal(int(os.Stderr.Fd())),
			})
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return serve(v)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file (yaml, toml or json)")
	if err := startup.Init(cmd, v); err != nil {
		return nil, err
	}
	return cmd, nil
}

func serve(v *viper.Viper) error {
	startTime := time.Now()
	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig(v)
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"media": config.MediaDir,
		"cache": config.CacheDir,
	}))

	trans := transcoder.New(transcoder.Options{
		CacheDir:      config.CacheDir,
		Prober:        &transcoder.FFprobe{Binary: config.FFprobeBinary, Timeout: config.ProbeTimeout},
		Encoder:       &transcoder.FFmpeg{Binary: config.FFmpegBinary},
		MaxConcurrent: config.TranscodeWorkers,
		Enabled:       config.TranscodingEnabled,
	})

	removed := 0
	if config.TranscodingEnabled {
		if removed, err = trans.CleanupPartials(); err != nil {
			logging.Warn("Failed to clean up partial transcodes: %v", err)
		}
	}
	startup.LogTranscoderInit(config, workers.ForTranscode(config.TranscodeWorkers), removed)

	shell, err := handlers.LoadTemplate(config.TemplatePath)
	if err != nil {
		startup.LogFatal("Template error: %v", err)
	}

	h := handlers.New(handlers.Config{
		MediaDir:  config.MediaDir,
		Template:  shell,
		StartTime: startTime,
	}, trans)

	router := h.Router()
	router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	startup.LogHTTPRoutes(router, config)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           appHandler(config, router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           metricsHandler(config, h),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go rotateLogsOnHangup()

	done := make(chan struct{})
	go func() {
		handleShutdown(srv, metricsSrv, trans)
		close(done)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}

	<-done
	return logging.Close()
}

// appHandler wraps the application router: authentication first, then
// request logging and response compression.
func appHandler(config *startup.Config, router http.Handler) http.Handler {
	gate := auth.New(auth.Credential{
		Username:     config.AuthUsername,
		PasswordHash: config.AuthPasswordHash,
		Realm:        config.AuthRealm,
	})
	authed := gate.Middleware(router)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	logged := middleware.Logger(loggingConfig)(authed)

	return middleware.Compression(middleware.DefaultCompressionConfig())(logged)
}

// metricsHandler serves /metrics and /healthz without authentication.
func metricsHandler(config *startup.Config, h *handlers.Handlers) http.Handler {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet, http.MethodHead)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.SkipPaths = []string{"/metrics"}
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	return middleware.Logger(loggingConfig)(router)
}

func rotateLogsOnHangup() {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	for range hup {
		if err := logging.Rotate(); err != nil {
			logging.Warn("Log rotation failed: %v", err)
		} else {
			logging.Info("Log file rotated")
		}
	}
}

func handleShutdown(srv, metricsSrv *http.Server, trans *transcoder.Transcoder) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Stopping transcoder")
	if err := trans.Shutdown(ctx); err != nil {
		logging.Warn("Transcoder shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Transcoder stopped")
	}

	startup.LogShutdownComplete()
}
