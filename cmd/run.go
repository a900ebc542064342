package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/spheredist/internal/config"
	"github.com/cwbudde/spheredist/internal/energy"
	"github.com/cwbudde/spheredist/internal/sphere"
	"github.com/spf13/cobra"
)

var (
	runCfg     = config.Default()
	runJSON    bool
	runTimeout time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run single-shot optimization",
	Long: `Distributes --points random points, minimizes their energy once and
prints the resulting configuration.`,
	RunE: runOptimization,
}

func init() {
	runCfg.Points = 12
	bindConfigFlags(runCmd.Flags(), &runCfg)
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the result as JSON")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Abort the solve after this long (0 = no limit)")
	rootCmd.AddCommand(runCmd)
}

// runReport is the output of a single-shot optimization
type runReport struct {
	Points          [][3]float64 `json:"points"`
	Energy          float64      `json:"energy"`
	CartesianEnergy float64      `json:"cartesianEnergy"`
	Status          string       `json:"status"`
	Iterations      int          `json:"iterations"`
	Attempts        int          `json:"attempts"`
	ElapsedMs       float64      `json:"elapsedMs"`
	MinSeparation   float64      `json:"minSeparation"` // smallest angle between two points, radians
}

func runOptimization(cmd *cobra.Command, args []string) error {
	s, err := newSession(runCfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runTimeout)
		defer cancel()
	}

	rng := rand.New(rand.NewSource(runCfg.Seed))
	ps := sphere.RandomSet(rng, runCfg.Points)
	slog.Info("Starting optimization", "points", len(ps), "backend", runCfg.Backend, "initial_energy", energy.Cartesian(ps))

	t := s.coord.Request(ps)
	res, err := t.Wait(ctx)
	if err != nil {
		return fmt.Errorf("optimization failed: %w", err)
	}
	if res == nil {
		return fmt.Errorf("request %d ended %s without a result", t.ID(), t.State())
	}

	rep := runReport{
		Points:          make([][3]float64, len(res.Points)),
		Energy:          res.Energy,
		CartesianEnergy: energy.Cartesian(res.Points),
		Status:          string(res.Status),
		Iterations:      res.Iterations,
		Attempts:        res.Attempts,
		ElapsedMs:       float64(res.Elapsed) / float64(time.Millisecond),
		MinSeparation:   minSeparation(res.Points),
	}
	for i, p := range res.Points {
		rep.Points[i] = [3]float64{p.X, p.Y, p.Z}
	}

	slog.Info("Optimization complete",
		"energy", rep.Energy,
		"status", rep.Status,
		"iterations", rep.Iterations,
		"elapsed_ms", rep.ElapsedMs,
	)

	return writeReport(cmd.OutOrStdout(), rep, runJSON)
}

// minSeparation returns the smallest angular distance between any two points
func minSeparation(ps sphere.PointSet) float64 {
	if len(ps) < 2 {
		return 0
	}
	best := math.Inf(1)
	for i := range ps {
		for j := i + 1; j < len(ps); j++ {
			best = math.Min(best, sphere.AngularDistance(ps[i], ps[j]))
		}
	}
	return best
}

func writeReport(w io.Writer, rep runReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tX\tY\tZ\tTHETA\tPHI")
	fmt.Fprintln(tw, "-\t-\t-\t-\t-----\t---")
	for i, p := range rep.Points {
		theta, phi := sphere.ToSpherical(sphere.Vec3{X: p[0], Y: p[1], Z: p[2]})
		fmt.Fprintf(tw, "%d\t%.6f\t%.6f\t%.6f\t%.4f\t%.4f\n", i, p[0], p[1], p[2], theta, phi)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nEnergy: %.6f (cartesian %.6f)\n", rep.Energy, rep.CartesianEnergy)
	fmt.Fprintf(w, "Status: %s after %d iterations, %d attempt(s), %.1f ms\n", rep.Status, rep.Iterations, rep.Attempts, rep.ElapsedMs)
	fmt.Fprintf(w, "Min separation: %.4f rad (%.2f°)\n", rep.MinSeparation, rep.MinSeparation*180/math.Pi)
	return nil
}
