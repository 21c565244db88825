package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"github.com/zulandar/proptalk/internal/backend"
	"github.com/zulandar/proptalk/internal/config"
)

func newDoctorCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and backend connectivity",
		Long:  "Runs diagnostic checks: config, backend health, a session round trip, the property listing, and the catalog cache.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "proptalk.yaml", "path to proptalk config file")
	return cmd
}

type checkResult struct {
	name   string
	status string // "PASS", "FAIL", "WARN"
	detail string
}

func runDoctor(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Proptalk Doctor")
	fmt.Fprintln(out, "===============")

	var results []checkResult

	cfg, cfgResult := checkConfig(configPath)
	results = append(results, cfgResult)

	if cfg != nil {
		bc, err := backend.NewClient(backend.ClientOpts{
			BaseURL:    cfg.Backend.BaseURL,
			Timeout:    cfg.Backend.Timeout(),
			RatePerSec: -1,
		})
		if err != nil {
			results = append(results, checkResult{"Backend", "FAIL", err.Error()})
		} else {
			ctx := cmd.Context()
			results = append(results,
				checkHealth(ctx, bc),
				checkSession(ctx, bc),
				checkProperties(ctx, bc),
			)
		}
		results = append(results, checkCache(cfg))
	} else {
		for _, name := range []string{"Backend health", "Session", "Properties", "Catalog cache"} {
			results = append(results, checkResult{name, "FAIL", "skipped (no config)"})
		}
	}

	passed, failed, warned := 0, 0, 0
	for _, r := range results {
		printCheckResult(out, r)
		switch r.status {
		case "PASS":
			passed++
		case "FAIL":
			failed++
		case "WARN":
			warned++
		}
	}

	fmt.Fprintf(out, "\n%d passed, %d failed, %d warning\n", passed, failed, warned)

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func printCheckResult(out io.Writer, r checkResult) {
	fmt.Fprintf(out, "[%s] %s: %s\n", r.status, r.name, r.detail)
}

func checkConfig(path string) (*config.Config, checkResult) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return config.Default(), checkResult{"Config file", "WARN", path + " not found, using defaults"}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, checkResult{"Config file", "FAIL", fmt.Sprintf("%s: %v", path, err)}
	}
	return cfg, checkResult{"Config file", "PASS", path}
}

func checkHealth(ctx context.Context, bc *backend.Client) checkResult {
	h, err := bc.Health(ctx)
	if err != nil {
		return checkResult{"Backend health", "FAIL", err.Error()}
	}
	detail := h.Status
	if h.Version != "" {
		detail += " (version " + h.Version + ")"
	}
	if h.Status != "healthy" && h.Status != "ok" {
		return checkResult{"Backend health", "WARN", detail}
	}
	return checkResult{"Backend health", "PASS", detail}
}

// checkSession creates a session and deletes it again.
func checkSession(ctx context.Context, bc *backend.Client) checkResult {
	id, err := bc.CreateSession(ctx)
	if err != nil {
		return checkResult{"Session", "FAIL", err.Error()}
	}
	if err := bc.DeleteSession(ctx, id); err != nil {
		return checkResult{"Session", "WARN", fmt.Sprintf("created %s but delete failed: %v", id, err)}
	}
	return checkResult{"Session", "PASS", "create and delete ok"}
}

func checkProperties(ctx context.Context, bc *backend.Client) checkResult {
	list, err := bc.ListProperties(ctx)
	if err != nil {
		return checkResult{"Properties", "FAIL", err.Error()}
	}
	all := list.Catalog().All()
	onMap := 0
	for _, p := range all {
		if p.HasCoordinates() {
			onMap++
		}
	}
	detail := fmt.Sprintf("%d listed, %d with coordinates", len(all), onMap)
	if len(all) == 0 || onMap == 0 {
		return checkResult{"Properties", "WARN", detail}
	}
	return checkResult{"Properties", "PASS", detail}
}

func checkCache(cfg *config.Config) checkResult {
	store, err := openStore(cfg)
	if err != nil {
		return checkResult{"Catalog cache", "WARN", fmt.Sprintf("%s unavailable: %v", cfg.Catalog.Driver, err)}
	}
	defer store.Close()
	n, err := store.Count()
	if err != nil {
		return checkResult{"Catalog cache", "WARN", err.Error()}
	}
	return checkResult{"Catalog cache", "PASS", fmt.Sprintf("%s, %d properties cached", cfg.Catalog.Driver, n)}
}
