package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cwbudde/spheredist/internal/server"
	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running server",
	Long: `Queries a server started with "spheredist serve" and prints the
displayed configuration, the latest result and coordinator counters.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	status, err := fetchStatus(serverURL)
	if err != nil {
		return err
	}
	printStatus(cmd.OutOrStdout(), status)
	return nil
}

func fetchStatus(base string) (*server.StatusResponse, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(base + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned error: %s", string(body))
	}

	var status server.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &status, nil
}

func printStatus(w io.Writer, status *server.StatusResponse) {
	f := status.Frame
	fmt.Fprintf(w, "Points: %d displayed, %d target\n", f.Count, f.Target)
	fmt.Fprintf(w, "Request: result %d of latest %d (%d pending)\n", f.ResultID, f.LatestID, status.Pending)
	if f.ResultID > 0 {
		fmt.Fprintf(w, "Energy: %.6f (%s)\n", f.Energy, f.Status)
	}
	fmt.Fprintf(w, "Max error: %.4f rad\n", f.MaxError)
	fmt.Fprintln(w)

	st := status.Stats
	fmt.Fprintln(w, "Requests:")
	fmt.Fprintf(w, "  Issued: %d\n", st.Issued)
	fmt.Fprintf(w, "  Solved: %d\n", st.Solved)
	fmt.Fprintf(w, "  Skipped: %d\n", st.Skipped)
	fmt.Fprintf(w, "  Dropped: %d\n", st.Dropped)
	fmt.Fprintf(w, "  Cancelled: %d\n", st.Cancelled)
	if st.Discarded > 0 || st.Retries > 0 {
		fmt.Fprintf(w, "  Discarded: %d (retries %d)\n", st.Discarded, st.Retries)
	}
	if st.Failed > 0 {
		fmt.Fprintf(w, "  Failed: %d\n", st.Failed)
	}
	fmt.Fprintln(w)

	if f.Health.Degraded {
		fmt.Fprintf(w, "Health: degraded (%d recovered panics)\n  Last error: %s\n", f.Health.Panics, f.Health.LastError)
	} else {
		fmt.Fprintln(w, "Health: ok")
	}
	uptime := time.Duration(status.Uptime * float64(time.Second))
	fmt.Fprintf(w, "Clients: %d, uptime %s\n", status.Clients, uptime.Round(time.Second))
}
