package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	events "github.com/glimte/mmate-events"
	"github.com/glimte/mmate-events/config"
	"github.com/glimte/mmate-events/schema"
	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mmate-events",
		Short: "Validate event schemas and emit events",
		Long: `mmate-events registers event schemas, validates payloads against them
and writes the resulting envelopes to the configured sinks.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildTime),
		SilenceUsage: true,
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)

	var configPath string
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML config file")

	validateCmd := &cobra.Command{
		Use:   "validate <schema-file>...",
		Short: "Check schema documents and print their keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := schema.NewRegistry()
			var failed int
			for _, path := range args {
				key, err := registry.RegisterFile(path)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL %-40s %v\n", path, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok   %-40s %s\n", path, key)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d schemas are invalid", failed, len(args))
			}
			return nil
		},
	}

	emitCmd := &cobra.Command{
		Use:   "emit <schema-id> <version> [payload-json]",
		Short: "Emit one event; the payload is read from stdin when omitted",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			schemaVersion, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[1], err)
			}

			raw := []byte{}
			if len(args) == 3 {
				raw = []byte(args[2])
			} else if raw, err = io.ReadAll(cmd.InOrStdin()); err != nil {
				return fmt.Errorf("failed to read payload: %w", err)
			}
			var data map[string]any
			if err := json.Unmarshal(raw, &data); err != nil {
				return fmt.Errorf("payload must be a JSON object: %w", err)
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if !cfg.HasSinks() {
				cfg.Sinks.Stdout = true
			}

			client, err := events.NewClient(ctx, cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			env, err := client.Emit(ctx, args[0], schemaVersion, data)
			if err != nil {
				return err
			}
			if env == nil {
				return errors.New("event dropped: schema not registered")
			}
			return nil
		},
	}

	rootCmd.AddCommand(validateCmd, emitCmd)
	return rootCmd
}
