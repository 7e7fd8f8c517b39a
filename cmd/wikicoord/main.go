package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"wikicoord/core-go/internal/config"
	"wikicoord/core-go/internal/detail"
	"wikicoord/core-go/internal/geo"
	"wikicoord/core-go/internal/httpapi"
	"wikicoord/core-go/internal/sparql"
	"wikicoord/core-go/internal/wikibase"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "wikicoord",
		Short:         "Browse geolocated Wikidata items on a map",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	serveCmd := newServeCommand()
	root.RunE = serveCmd.RunE
	root.Args = cobra.NoArgs
	root.AddCommand(serveCmd, newQueryCommand(), newEntityCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the session API for the map widget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func newQueryCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "query LAT LON ZOOM",
		Short: "Print the bounding-box query for a viewport",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("lat: %w", err)
			}
			lon, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("lon: %w", err)
			}
			zoom, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("zoom: %w", err)
			}

			area := geo.SearchAreaFor(orb.Point{lon, lat}, zoom)
			fmt.Fprintf(cmd.ErrOrStderr(), "# radius %dm\n", int(area.RadiusMeters+0.5))
			fmt.Fprintln(cmd.OutOrStdout(), sparql.BuildBoxQuery(area.Bound, limit))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", sparql.DefaultLimit, "result limit")
	return cmd
}

func newEntityCommand() *cobra.Command {
	var asHTML bool
	cmd := &cobra.Command{
		Use:   "entity ID",
		Short: "Resolve an entity's statements and print them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := httpapi.NewLogger(cfg.LogLevel)

			client := wikibase.NewClient(wikibase.Options{
				Endpoint:  cfg.EntityAPIEndpoint,
				Language:  cfg.Language,
				UserAgent: cfg.UserAgent,
				Timeout:   cfg.HTTPTimeout,
			})
			resolver := detail.NewResolver(logger, client, detail.Options{
				Language:  cfg.Language,
				ChunkSize: cfg.LabelChunkSize,
				PageBase:  cfg.EntityPageBase,
			}, nil)

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			d, err := resolver.Resolve(ctx, args[0])
			if err != nil {
				return err
			}

			if asHTML {
				fmt.Fprintln(cmd.OutOrStdout(), detail.RenderHTML(d))
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(d)
		},
	}
	cmd.Flags().BoolVar(&asHTML, "html", false, "print the HTML fragment instead of JSON")
	return cmd
}
