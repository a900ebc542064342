package main

import (
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cwbudde/spheredist/internal/anim"
	"github.com/cwbudde/spheredist/internal/config"
	"github.com/cwbudde/spheredist/internal/tui"
	"github.com/spf13/cobra"
)

var liveCfg = config.Default()

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Animate points on a sphere in the terminal",
	Long: `Opens an interactive terminal view. Press q, a or + to add a point and
w, d or - to remove one; the configuration is re-optimized in the background
while the points glide to their new positions. Esc or ctrl+c quits.`,
	Annotations: map[string]string{quietAnnotation: "true"},
	RunE:        runLive,
}

func init() {
	bindConfigFlags(liveCmd.Flags(), &liveCfg)
	liveCmd.Flags().IntVar(&liveCfg.FPS, "fps", liveCfg.FPS, "Frames per second")
	rootCmd.AddCommand(liveCmd)
}

func runLive(cmd *cobra.Command, args []string) error {
	s, err := newSession(liveCfg)
	if err != nil {
		return err
	}
	defer s.Close()

	driver := anim.New(s.coord, nil, s.animOptions(liveCfg))
	model := tui.NewModel(driver, s.coord, liveCfg.FrameInterval())

	slog.Info("Starting terminal view", "fps", liveCfg.FPS, "points", liveCfg.Points)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("terminal view failed: %w", err)
	}

	st := s.coord.Stats()
	slog.Info("Terminal view closed", "issued", st.Issued, "solved", st.Solved, "skipped", st.Skipped)
	return nil
}
