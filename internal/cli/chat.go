package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"carmatch/internal/app"
	"carmatch/internal/tui"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the recommender in the terminal",
		Args:  cobra.NoArgs,
		Run:   runChat,
	}
	cmd.Flags().String("log-file", "", "Write logs to this file instead of discarding them")
	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, _ []string) {
	cfg := loadConfig()
	logFile, _ := cmd.Flags().GetString("log-file")

	// the terminal belongs to the UI, so logs go to a file or nowhere
	log := zap.NewNop()
	if logFile != "" {
		cfg.Logging.OutputPath = logFile
		log = newLogger(cfg)
	}
	defer log.Sync()

	backend, err := app.Open(cmd.Context(), cfg, log)
	if err != nil {
		exitErr("open catalog", err)
	}
	defer backend.Close()

	dialogue, err := backend.NewDialogue(cfg, log)
	if err != nil {
		exitErr("build dialogue", err)
	}

	p := tea.NewProgram(tui.New(dialogue, uuid.NewString()), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		exitErr("run chat", err)
	}
}
