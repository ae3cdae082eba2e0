package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/video-dl-api/api"
	"github.com/yourusername/video-dl-api/internal/app"
	"github.com/yourusername/video-dl-api/internal/domain"
	"github.com/yourusername/video-dl-api/internal/infrastructure"
	"github.com/yourusername/video-dl-api/pkg/logger"
)

const readHeaderTimeout = 10 * time.Second

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "video-dl-server",
		Short: "Video download API server",
		Long:  `An HTTP service that downloads videos with yt-dlp and returns QuickTime-compatible MP4 files.`,
		RunE:  runServe,

		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ./configs/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (default)",
	RunE:  runServe,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and look up external tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := app.LoadConfig(configPath)
		if err != nil {
			return err
		}

		fmt.Printf("Config OK: %d token(s), listening on %s\n", len(config.Auth.Tokens), listenAddr(config))

		var missing int
		for _, binary := range []string{config.Extractor.Binary, config.Transcoder.FFmpegBinary, config.Transcoder.FFprobeBinary} {
			path, err := exec.LookPath(binary)
			if err != nil {
				fmt.Printf("  %-10s MISSING (%v)\n", binary, err)
				missing++
				continue
			}
			fmt.Printf("  %-10s %s\n", binary, path)
		}

		credentials := infrastructure.NewCredentialStore(&config.Extractor)
		if cookies, ok := credentials.CookieFile(); ok {
			fmt.Printf("  cookies    %s\n", cookies)
		} else {
			fmt.Printf("  cookies    none (%s)\n", config.Extractor.CookieFile)
		}

		if missing > 0 {
			return fmt.Errorf("%d external tool(s) not found", missing)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the server version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(app.Version)
	},
}

func runServe(cmd *cobra.Command, args []string) error {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	service, err := buildService(config, log)
	if err != nil {
		log.Error("Failed to initialize service", zap.Error(err))
		return err
	}

	credentials := infrastructure.NewCredentialStore(&config.Extractor)
	_, hasCookies := credentials.CookieFile()
	log.Info("Starting video download server",
		zap.String("version", app.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.Int("auth_tokens", len(config.Auth.Tokens)),
		zap.Bool("cookies", hasCookies),
		zap.Strings("twitter_api_order", credentials.TwitterAPIOrder()),
		zap.String("temp_dir", config.Storage.TempDir))

	router := api.SetupRouter(service, log)

	addr := listenAddr(config)
	server := newHTTPServer(addr, router)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Received shutdown signal")
	case err := <-serverErr:
		log.Error("Failed to start server", zap.Error(err))
		return err
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}

// buildService wires the download pipeline from config
func buildService(config *domain.Config, log *zap.Logger) (*app.DownloadService, error) {
	auth, err := app.NewAuthGate(config.Auth.Tokens)
	if err != nil {
		return nil, err
	}

	runner := infrastructure.NewExecRunner(log.Named("exec"))
	credentials := infrastructure.NewCredentialStore(&config.Extractor)
	extractor := infrastructure.NewYTDLPExtractor(&config.Extractor, credentials, runner, log.Named("extractor"))
	prober := infrastructure.NewFFprobeProber(&config.Transcoder, runner, log.Named("prober"))
	normalizer := infrastructure.NewFFmpegNormalizer(&config.Transcoder, domain.QuickTimeProfile, prober, runner, log.Named("normalizer"))
	workspaces := infrastructure.NewWorkspaceFactory(config.Storage.TempDir)

	return app.NewDownloadService(auth, extractor, normalizer, workspaces, log), nil
}

// newHTTPServer bounds header reads only; responses stream for as long as a transcode takes
func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

func listenAddr(config *domain.Config) string {
	return net.JoinHostPort(config.Server.Host, strconv.Itoa(config.Server.Port))
}
