package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"vesteja/internal/infrastructure/storage"
	"vesteja/internal/logging"
	"vesteja/internal/tui"
)

var (
	serverFlag  string
	localeFlag  string
	outFlag     string
	logFileFlag string
)

var rootCmd = &cobra.Command{
	Use:   "vesteja",
	Short: "Terminal fitting room",
	Long: `Walks through the VesteJá fitting room in the terminal: pick a gender,
send a full-body photo, choose a garment and save the try-on result.

Requires a running vesteja-server.`,
	SilenceUsage: true,
	RunE:         runWizard,
}

func init() {
	rootCmd.Flags().StringVarP(&serverFlag, "server", "s", "http://localhost:8080", "Base URL of the vesteja server")
	rootCmd.Flags().StringVarP(&localeFlag, "locale", "l", "pt-BR", "Interface language (pt-BR or en)")
	rootCmd.Flags().StringVarP(&outFlag, "out", "o", storage.ResultFilename, "Where to save the result")
	rootCmd.Flags().StringVar(&logFileFlag, "log-file", "vesteja-wizard.log", "Log file; the terminal is owned by the UI")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runWizard(cmd *cobra.Command, args []string) error {
	logFile, err := os.OpenFile(logFileFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	logging.InitFile(logFile, os.Getenv("VESTEJA_LOG_LEVEL"))

	model := tui.New(tui.NewClient(serverFlag), tui.Options{
		Locale:     localeFlag,
		ResultPath: outFlag,
	})
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("wizard failed: %w", err)
	}
	return nil
}
