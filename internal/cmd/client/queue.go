package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cocuh/toyosatomimi/internal/server/http/controllers"
	"github.com/spf13/cobra"
)

// NewQueueCommand constructs the `queue` command group, read-only views
// served by the broker's admin HTTP endpoint.
func NewQueueCommand() *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect broker state over the admin HTTP API",
	}
	queueCmd.AddCommand(
		newQueueListCommand("ls", "/v1/queue", "List queued jobs, head first"),
		newQueueListCommand("completed", "/v1/completed", "List completed jobs in completion order"),
		newQueueInFlightCommand(),
		newQueueStatsCommand(),
	)
	return queueCmd
}

func newQueueListCommand(use, path, short string) *cobra.Command {
	c := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var out controllers.JobList
			if err := getView(cmd, path, &out); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, j := range out.Jobs {
				if err := enc.Encode(j); err != nil {
					return err
				}
			}
			return nil
		},
	}
	addViewFlags(c)
	return c
}

func newQueueInFlightCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "inflight",
		Short: "List jobs handed out by get and not yet reported back",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var out controllers.DeliveryList
			if err := getView(cmd, "/v1/inflight", &out); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, d := range out.Deliveries {
				if err := enc.Encode(d); err != nil {
					return err
				}
			}
			return nil
		},
	}
	addViewFlags(c)
	return c
}

func newQueueStatsCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "stats",
		Short: "Show broker counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var out map[string]any
			if err := getView(cmd, "/v1/stats", &out); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	c.Flags().String("http", "", "Admin base URL (default http://127.0.0.1:5152)")
	return c
}

func addViewFlags(c *cobra.Command) {
	c.Flags().String("http", "", "Admin base URL (default http://127.0.0.1:5152)")
	c.Flags().String("filter", "", "CEL expression over job (and delivery for inflight)")
	c.Flags().Int("limit", 0, "Return at most N entries (0 = all)")
}

// getView fetches base+path with the view query flags and decodes the body.
func getView(cmd *cobra.Command, path string, out any) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	q := url.Values{}
	if f, _ := cmd.Flags().GetString("filter"); f != "" {
		q.Set("filter", f)
	}
	if n, _ := cmd.Flags().GetInt("limit"); n > 0 {
		q.Set("limit", strconv.Itoa(n))
	}
	u := strings.TrimRight(cfg.Client.HTTPURL, "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	hc := &http.Client{Timeout: time.Duration(cfg.Client.RequestTimeoutMs) * time.Millisecond}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var e controllers.ErrorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, e.Error)
		}
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, out)
}
