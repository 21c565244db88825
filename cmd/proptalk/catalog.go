package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/proptalk/internal/catalog"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the local property catalog cache",
	}
	cmd.AddCommand(newCatalogSyncCmd())
	cmd.AddCommand(newCatalogStatusCmd())
	return cmd
}

func newCatalogSyncCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy the backend property list into the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogSync(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "proptalk.yaml", "path to proptalk config file")
	return cmd
}

func runCatalogSync(cmd *cobra.Command, configPath string) error {
	a, err := newApp(appOpts{configPath: configPath})
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := openStore(a.cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	syncer, err := catalog.NewSyncer(catalog.SyncerOpts{
		Source: a.backend,
		Store:  store,
		Logger: a.log.Named("catalog"),
	})
	if err != nil {
		return err
	}
	res, err := syncer.Sync(cmd.Context())
	if err != nil {
		return err
	}

	state := "unchanged"
	if res.Changed {
		state = "updated"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Catalog %s: %d properties\n", state, len(res.Properties))
	return nil
}

func newCatalogStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what the cache holds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogStatus(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "proptalk.yaml", "path to proptalk config file")
	return cmd
}

func runCatalogStatus(cmd *cobra.Command, configPath string) error {
	a, err := newApp(appOpts{configPath: configPath})
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := openStore(a.cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Count()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Driver:     %s\n", a.cfg.Catalog.Driver)
	fmt.Fprintf(out, "Properties: %d\n", n)
	if n == 0 {
		fmt.Fprintln(out, "Updated:    never")
	} else {
		updated, err := store.LastUpdated()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Updated:    %s\n", updated.Local().Format(time.RFC3339))
	}
	schedule := a.cfg.Catalog.RefreshCron
	if schedule == "" {
		schedule = "disabled"
	}
	fmt.Fprintf(out, "Refresh:    %s\n", schedule)
	return nil
}
