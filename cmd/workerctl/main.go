// Package main is the workerctl CLI: submit statements and inspect jobs over
// the worker's HTTP API.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type clientOptions struct {
	host  string
	token string
}

func newRootCmd() *cobra.Command {
	opts := &clientOptions{}

	rootCmd := &cobra.Command{
		Use:           "workerctl",
		Short:         "Statement worker CLI",
		Long:          "Command-line interface for submitting and inspecting statement jobs.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if !cmd.Flags().Changed("host") {
				if v := os.Getenv("WORKER_HOST"); v != "" {
					opts.host = v
				}
			}
			if !cmd.Flags().Changed("token") {
				if v := os.Getenv("WORKER_TOKEN"); v != "" {
					opts.token = v
				}
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.host, "host", "http://localhost:8080", "worker base URL")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", "", "bearer token")

	rootCmd.AddCommand(newSubmitCmd(opts))
	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newStatusCmd(opts))
	rootCmd.AddCommand(newListCmd(opts))
	return rootCmd
}

func newSubmitCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <sql>",
		Short: "Queue a statement for background execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := json.Marshal(map[string]string{"sql": args[0]})
			if err != nil {
				return err
			}
			return opts.do(cmd.OutOrStdout(), http.MethodPost, "/api/v1/statements", body)
		},
	}
}

func newRunCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <handle>",
		Short: "Execute a queued statement synchronously",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.do(cmd.OutOrStdout(), http.MethodPost, "/api/v1/statements/"+args[0]+"/run", nil)
		},
	}
}

func newStatusCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <handle>",
		Short: "Show one job's ledger record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.do(cmd.OutOrStdout(), http.MethodGet, "/api/v1/statements/"+args[0], nil)
		},
	}
}

func newListCmd(opts *clientOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.do(cmd.OutOrStdout(), http.MethodGet, fmt.Sprintf("/api/v1/statements?limit=%d", limit), nil)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum jobs to list")
	return cmd
}

// do performs one API call and pretty-prints the JSON response.
func (o *clientOptions) do(out io.Writer, method, path string, body []byte) error {
	req, err := http.NewRequest(method, o.host+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if o.token != "" {
		req.Header.Set("Authorization", "Bearer "+o.token)
	}

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, payload, "", "  ") == nil {
		payload = pretty.Bytes()
	}
	fmt.Fprintln(out, string(payload))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return nil
}
