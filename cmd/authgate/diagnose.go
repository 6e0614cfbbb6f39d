package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func diagnoseCmd() *cobra.Command {
	var (
		baseURL string
		status  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Fetch the authentication diagnostics of a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/auth/diagnose"
			if status {
				path = "/api/auth/status"
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+path, nil)
			if err != nil {
				return err
			}
			req.Header.Set("Accept", "application/json")

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("request diagnostics: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("diagnostics returned %s", resp.Status)
			}

			var report map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
				return fmt.Errorf("decode diagnostics: %w", err)
			}
			return printJSON(cmd, report)
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the server")
	cmd.Flags().BoolVar(&status, "status", false, "Fetch the status report instead of the full diagnosis")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	return cmd
}
