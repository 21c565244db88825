package main

import (
	"github.com/spf13/cobra"
	"github.com/zulandar/proptalk/internal/catalog"
	"github.com/zulandar/proptalk/internal/web"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat and map in a browser",
		Long: "Starts the web front end. When catalog.refresh_cron is set the property " +
			"catalog is re-synced on that schedule and the map follows.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("port") {
				port = 0
			}
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "proptalk.yaml", "path to proptalk config file")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on (overrides web.port)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	a, err := newApp(appOpts{configPath: configPath, withCache: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if port == 0 {
		port = a.cfg.Web.Port
	}
	schedule := a.cfg.Catalog.RefreshCron
	if schedule != "" {
		if err := catalog.ValidateSchedule(schedule); err != nil {
			return err
		}
	}

	lib := web.NewBrowserLibrary()
	client, err := a.newClient(lib)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	if err := client.Start(ctx); err != nil {
		return err
	}
	defer client.Close()

	g, gctx := errgroup.WithContext(ctx)
	if schedule != "" && a.cache != nil {
		syncer, err := catalog.NewSyncer(catalog.SyncerOpts{
			Source: a.backend,
			Store:  a.cache,
			Logger: a.log.Named("catalog"),
		})
		if err != nil {
			return err
		}
		g.Go(func() error {
			return syncer.Run(gctx, schedule, client.SetCatalog)
		})
	} else if schedule != "" {
		a.log.Warn("catalog refresh disabled: no cache", zap.String("cron", schedule))
	}

	g.Go(func() error {
		return web.Start(gctx, web.StartOpts{
			Client:  client,
			Library: lib,
			Port:    port,
			Out:     cmd.OutOrStdout(),
			Logger:  a.log.Named("web"),
		})
	})
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
