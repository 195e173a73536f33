package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/flemzord/chatmem/internal/gateway"
)

const statusTimeout = 10 * time.Second

// dialogRow mirrors the summary returned by GET /api/dialogs.
type dialogRow struct {
	Key           string `json:"key"`
	Style         string `json:"style"`
	MemoryEnabled bool   `json:"memory_enabled"`
	HistoryLen    int    `json:"history_len"`
	LastUsed      string `json:"last_used"`
}

func statusCmd() *cobra.Command {
	var (
		addr    string
		token   string
		dialogs bool
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of a running chatmem through its gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
			defer cancel()

			c := &gatewayClient{base: strings.TrimRight(addr, "/"), token: token, http: http.DefaultClient}
			var st gateway.StatusResponse
			if err := c.get(ctx, "/status", &st); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			renderStatus(out, st)

			if !dialogs {
				return nil
			}
			var rows []dialogRow
			if err := c.get(ctx, "/api/dialogs", &rows); err != nil {
				return err
			}
			fmt.Fprintln(out)
			renderDialogs(out, rows)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", "http://127.0.0.1:8080", "Gateway base URL")
	f.StringVar(&token, "token", "", "Bearer token for the gateway")
	f.BoolVar(&dialogs, "dialogs", false, "Also list live dialogs")
	return cmd
}

type gatewayClient struct {
	base  string
	token string
	http  *http.Client
}

func (c *gatewayClient) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status: GET %s: %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("status: decoding %s: %w", path, err)
	}
	return nil
}

func renderStatus(w io.Writer, st gateway.StatusResponse) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAutoFormatHeaders(false)
	table.AppendBulk([][]string{
		{"Uptime", (time.Duration(st.UptimeSeconds) * time.Second).String()},
		{"Started", st.StartedAt.Format(time.RFC3339)},
		{"Dialogs", strconv.Itoa(st.Stats.Dialogs)},
		{"Messages", strconv.Itoa(st.Stats.Messages)},
		{"Memory on", strconv.Itoa(st.Stats.MemoryOn)},
		{"Memory off", strconv.Itoa(st.Stats.MemoryOff)},
	})
	table.Render()
}

func renderDialogs(w io.Writer, rows []dialogRow) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Key", "Style", "Memory", "History", "Last used"})
	table.SetAutoFormatHeaders(false)
	for _, r := range rows {
		memory := "off"
		if r.MemoryEnabled {
			memory = "on"
		}
		table.Append([]string{r.Key, r.Style, memory, strconv.Itoa(r.HistoryLen), r.LastUsed})
	}
	table.Render()
}
