package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"vesteja/internal/application/usecases"
	"vesteja/internal/config"
	domainservices "vesteja/internal/domain/services"
	"vesteja/internal/domain/valueobjects"
	"vesteja/internal/infrastructure/external"
	"vesteja/internal/logging"
)

var validExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

var (
	configPath string
	localeFlag string
	strictFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "photocheck <dir>",
	Short: "Run the photo acceptance gate over a directory of images",
	Long: `Runs every .jpg, .jpeg, .png and .webp file in <dir> through the same
lighting and framing checks the fitting room applies to uploads, and prints
one verdict per file. The pose service configured for the server is used.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runCheck,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.Flags().StringVarP(&localeFlag, "locale", "l", string(valueobjects.LocalePTBR), "Language of the rejection messages")
	rootCmd.Flags().BoolVar(&strictFlag, "strict", false, "Exit with an error when any photo is rejected")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logging.Init(cfg.Log.Level, true)

	gate := usecases.NewGateUseCase(
		domainservices.NewPhotoGate(domainservices.GateThresholds{
			MinBrightness: cfg.Gate.MinBrightness,
			MaxBrightness: cfg.Gate.MaxBrightness,
			NoseScore:     cfg.Gate.NoseScore,
			HipScore:      cfg.Gate.HipScore,
			AnkleScore:    cfg.Gate.AnkleScore,
		}),
		external.NewHTTPPoseEstimator(cfg.Pose.Endpoint, cfg.Pose.Timeout),
		nil,
		usecases.GateOptions{
			MaxDimension:    cfg.Gate.MaxDimension,
			LenientLighting: cfg.Gate.LenientLighting,
		},
	)

	rejected, err := checkDir(cmd.Context(), gate, args[0], valueobjects.Locale(localeFlag), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if strictFlag && rejected > 0 {
		return fmt.Errorf("%d photo(s) rejected", rejected)
	}
	return nil
}

// checkDir evaluates every image in dir and returns how many were rejected.
// Unreadable files count as rejected.
func checkDir(ctx context.Context, gate usecases.PhotoEvaluator, dir string, locale valueobjects.Locale, w io.Writer) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	checked, rejected := 0, 0
	for _, entry := range entries {
		if entry.IsDir() || !slices.Contains(validExtensions, strings.ToLower(filepath.Ext(entry.Name()))) {
			continue
		}
		checked++

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("Skipping unreadable file")
			fmt.Fprintf(w, "FAIL  %s: %v\n", entry.Name(), err)
			rejected++
			continue
		}

		photo, err := valueobjects.NewImageData(data)
		if err != nil {
			fmt.Fprintf(w, "FAIL  %s: %v\n", entry.Name(), err)
			rejected++
			continue
		}

		verdict := gate.Evaluate(ctx, photo)
		if verdict.IsAccepted() {
			fmt.Fprintf(w, "OK    %s\n", entry.Name())
			continue
		}
		rejected++
		fmt.Fprintf(w, "FAIL  %s: %s\n", entry.Name(), verdict.Reason().Message(locale))
	}

	log.Info().Int("checked", checked).Int("rejected", rejected).Str("dir", dir).Msg("Photo check finished")
	return rejected, nil
}
