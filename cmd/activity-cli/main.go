package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	version = "dev"

	// Global flags
	serverURL string

	// Warm command flags
	warmDate    string
	warmRange   string
	concurrency int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "activity-cli",
	Short:   "Operate the board-activity service",
	Version: version,
}

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Warm the summary cache for every group in the roster",
	Long: `Warm the summary cache for every group in the roster.

Fetches the roster for the given window, then drives the summary endpoint
for each group with bounded concurrency so a dashboard opening on that
window gets cache hits.

Examples:
  # Warm a five-minute window for all groups
  activity-cli warm --date 2024-05-01 --range "11:25〜11:30"

  # Limit upstream pressure to one request at a time
  activity-cli warm --date 2024-05-01 --range "11:25〜11:30" --concurrency 1`,
	RunE: runWarm,
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the manager's current activity state",
	RunE:  runState,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9020", "board-activity server URL")

	warmCmd.Flags().StringVar(&warmDate, "date", "", "calendar date (YYYY-MM-DD)")
	warmCmd.Flags().StringVar(&warmRange, "range", "", "time range label (H:MM〜H:MM)")
	warmCmd.Flags().IntVar(&concurrency, "concurrency", 2, "number of concurrent warm requests")
	_ = warmCmd.MarkFlagRequired("date")
	_ = warmCmd.MarkFlagRequired("range")

	rootCmd.AddCommand(warmCmd)
	rootCmd.AddCommand(stateCmd)
}

type groupsResponse struct {
	Groups []struct {
		ID    string `json:"id"`
		RawID string `json:"rawId"`
	} `json:"groups"`
}

type summaryResponse struct {
	Cached  bool `json:"cached"`
	Summary struct {
		Total     int `json:"total"`
		DiffCount int `json:"diffCount"`
	} `json:"summary"`
}

func runWarm(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 60 * time.Second}

	groupsURL := fmt.Sprintf("%s/v1/activity/groups?date=%s&time_range=%s",
		serverURL, url.QueryEscape(warmDate), url.QueryEscape(warmRange))
	resp, err := client.Get(groupsURL)
	if err != nil {
		return fmt.Errorf("failed to fetch roster: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch roster: status %d", resp.StatusCode)
	}

	var roster groupsResponse
	if err := json.NewDecoder(resp.Body).Decode(&roster); err != nil {
		return fmt.Errorf("failed to decode roster: %w", err)
	}
	if len(roster.Groups) == 0 {
		fmt.Println("No groups in roster; nothing to warm.")
		return nil
	}

	g := new(errgroup.Group)
	g.SetLimit(max(1, concurrency))

	for _, group := range roster.Groups {
		id := group.RawID
		if id == "" {
			id = group.ID
		}
		g.Go(func() error {
			summaryURL := fmt.Sprintf("%s/v1/activity/summary?group_id=%s&date=%s&time_range=%s",
				serverURL, url.QueryEscape(id), url.QueryEscape(warmDate), url.QueryEscape(warmRange))
			res, err := client.Get(summaryURL)
			if err != nil {
				fmt.Printf("%-24s error: %v\n", id, err)
				return nil
			}
			defer res.Body.Close()

			if res.StatusCode != http.StatusOK {
				fmt.Printf("%-24s status %d\n", id, res.StatusCode)
				return nil
			}
			var summary summaryResponse
			if err := json.NewDecoder(res.Body).Decode(&summary); err != nil {
				fmt.Printf("%-24s decode error: %v\n", id, err)
				return nil
			}
			source := "fetched"
			if summary.Cached {
				source = "cached"
			}
			fmt.Printf("%-24s total=%d diffs=%d (%s)\n", id, summary.Summary.Total, summary.Summary.DiffCount, source)
			return nil
		})
	}

	return g.Wait()
}

func runState(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(serverURL + "/v1/activity/state")
	if err != nil {
		return fmt.Errorf("failed to fetch state: %w", err)
	}
	defer resp.Body.Close()

	var pretty map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&pretty); err != nil {
		return fmt.Errorf("failed to decode state: %w", err)
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
