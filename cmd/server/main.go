package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"vesteja/internal/application/services"
	"vesteja/internal/application/usecases"
	"vesteja/internal/config"
	domainrepos "vesteja/internal/domain/repositories"
	domainservices "vesteja/internal/domain/services"
	"vesteja/internal/infrastructure/api"
	"vesteja/internal/infrastructure/external"
	"vesteja/internal/infrastructure/repositories"
	infraservices "vesteja/internal/infrastructure/services"
	"vesteja/internal/infrastructure/storage"
	"vesteja/internal/logging"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "vesteja-server",
	Short: "VesteJá virtual fitting room server",
	Long: `Serves the fitting-room wizard session API, the garment catalog and
the /tryon compositing endpoint.

Settings come from an optional YAML file (--config) and environment
variables such as PORT, PROJECT_ID, VESTEJA_TRYON_BACKEND and
VESTEJA_POSE_ENDPOINT.`,
	SilenceUsage: true,
	RunE:         runServer,
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write a starter configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "vesteja.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.AddCommand(initConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	started := time.Now()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logging.Init(cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := repositories.NewJSONCatalogRepository(cfg.Catalog.Path).Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	// Try-on compositing behind /tryon
	pools := infraservices.NewClientPoolService(domainrepos.AIClientConfig{
		ProjectID:    cfg.Google.ProjectID,
		Location:     cfg.Google.Location,
		GeminiAPIKey: cfg.Google.APIKey,
	})
	defer pools.Close()

	aiService := newAIService(cfg, pools)
	defer aiService.Close()

	tryOnUseCase := usecases.NewTryOnUseCase(
		repositories.NewMemoryTryOnRepository(repositories.DefaultTryOnHistory),
		domainservices.NewTryOnDomainService(aiService),
	)
	tryOnHandler := api.NewTryOnHandler(tryOnUseCase, services.NewParameterService())

	// Photo acceptance gate
	gate := usecases.NewGateUseCase(
		domainservices.NewPhotoGate(domainservices.GateThresholds{
			MinBrightness: cfg.Gate.MinBrightness,
			MaxBrightness: cfg.Gate.MaxBrightness,
			NoseScore:     cfg.Gate.NoseScore,
			HipScore:      cfg.Gate.HipScore,
			AnkleScore:    cfg.Gate.AnkleScore,
		}),
		external.NewHTTPPoseEstimator(cfg.Pose.Endpoint, cfg.Pose.Timeout),
		repositories.NewHashVerdictCache(*cfg.Gate.CacheThreshold, cfg.Gate.CacheSize),
		usecases.GateOptions{
			MaxDimension:    cfg.Gate.MaxDimension,
			LenientLighting: cfg.Gate.LenientLighting,
		},
	)

	var results domainrepos.ResultStore
	if cfg.Results.S3Bucket != "" {
		store, err := storage.NewS3ResultStore(ctx, storage.S3Options{
			Bucket: cfg.Results.S3Bucket,
			Prefix: cfg.Results.S3Prefix,
			Region: cfg.Results.S3Region,
			Expiry: cfg.Results.LinkExpiry,
		})
		if err != nil {
			return err
		}
		results = store
	}

	sessions := repositories.NewMemorySessionRepository()
	wizard, err := usecases.NewWizardUseCase(usecases.WizardDeps{
		Sessions: sessions,
		Catalog:  catalog,
		Gate:     gate,
		TryOn:    external.NewHTTPTryOnClient(cfg.TryOnEndpoint(), cfg.TryOn.Timeout),
		Garments: &external.GarmentFetcher{
			AssetDir: cfg.Catalog.AssetDir,
			BaseURL:  cfg.Catalog.BaseURL,
		},
		Progress:     services.NewProgressService(),
		Results:      results,
		TryOnTimeout: cfg.TryOn.Timeout,
	})
	if err != nil {
		return err
	}
	viewer := usecases.NewViewerUseCase(sessions, wizard, domainservices.DefaultStereoLayout())

	handler := api.NewRouter(
		tryOnHandler,
		api.NewWizardHandler(wizard, viewer, services.NewLocaleService()),
		api.NewCatalogHandler(catalog),
		api.RouterOptions{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AssetDir:       cfg.Catalog.AssetDir,
		},
	)

	go wizard.RunJanitor(ctx, cfg.Session.TTL, cfg.Session.SweepInterval)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	logging.NewStartupLogger("vesteja-server").
		Version(version).
		Endpoint("pose", cfg.Pose.Endpoint).
		Endpoint("tryon", cfg.TryOnEndpoint()).
		Endpoint("upstream", cfg.TryOn.Upstream).
		S3Bucket("results", cfg.Results.S3Bucket).
		Feature("lenientLighting", cfg.Gate.LenientLighting).
		Feature("s3Archive", results != nil).
		Feature("verdictCache", *cfg.Gate.CacheThreshold > 0).
		Config("port", strconv.Itoa(cfg.Server.Port)).
		Config("backend", cfg.TryOn.Backend).
		Config("catalog", cfg.Catalog.Path).
		Config("garments", strconv.Itoa(catalog.Len())).
		Config("sessionTTL", cfg.Session.TTL.String()).
		InitDuration(time.Since(started)).
		Log()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	done := make(chan struct{})
	go func() {
		wizard.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Abandoning in-flight try-ons")
	}
	return nil
}

func newAIService(cfg *config.Config, pools domainrepos.ClientPoolService) domainrepos.AIService {
	switch cfg.TryOn.Backend {
	case config.BackendVertexSDK:
		return external.NewVertexAIService(pools, cfg.TryOn.VTOModel, true)
	case config.BackendGemini:
		return external.NewGeminiTryOnService(pools.GenAIPool(), cfg.TryOn.GeminiModel)
	case config.BackendProxy:
		return external.NewProxyTryOnService(external.NewHTTPTryOnClient(cfg.TryOn.Upstream, cfg.TryOn.Timeout))
	default:
		return external.NewVertexAIService(pools, cfg.TryOn.VTOModel, false)
	}
}
