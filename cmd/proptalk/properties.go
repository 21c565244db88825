package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/proptalk/internal/property"
)

func newPropertiesCmd() *cobra.Command {
	var (
		configPath string
		cached     bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "properties",
		Short: "List the properties the assistant knows about",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProperties(cmd, configPath, cached, asJSON)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "proptalk.yaml", "path to proptalk config file")
	cmd.Flags().BoolVar(&cached, "cached", false, "read from the local catalog cache instead of the backend")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func runProperties(cmd *cobra.Command, configPath string, cached, asJSON bool) error {
	a, err := newApp(appOpts{configPath: configPath})
	if err != nil {
		return err
	}
	defer a.Close()

	var items []property.Summary
	if cached {
		store, err := openStore(a.cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		if items, err = store.All(); err != nil {
			return err
		}
	} else {
		list, err := a.backend.ListProperties(cmd.Context())
		if err != nil {
			return err
		}
		items = list.Catalog().All()
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	printProperties(out, items)
	return nil
}

func printProperties(out io.Writer, items []property.Summary) {
	if len(items) == 0 {
		fmt.Fprintln(out, "No properties found.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tLOCATION\tPRICE (LAKHS)\tTYPES\tSTATUS\tMAP")
	for _, p := range items {
		onMap := "-"
		if p.HasCoordinates() {
			onMap = fmt.Sprintf("%.4f,%.4f", p.Coordinates.Lat, p.Coordinates.Lng)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Name, dash(p.Location), dash(p.Price), dash(p.UnitTypes), dash(p.Status), onMap)
	}
	w.Flush()
	fmt.Fprintf(out, "\n%d properties\n", len(items))
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
