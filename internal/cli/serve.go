package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/partplan/pkg/observability"
	"github.com/matzehuels/partplan/pkg/server"
)

const defaultAddr = ":8080"

// serveCommand runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the layout engine over HTTP",
		Long: `Serve the layout engine over HTTP.

Every request carries its own partition CSV and gets the laid-out table back;
the server keeps no state between requests. The configured device and presets
are used as defaults. Prometheus metrics are exposed on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.loadEnvironment()
			if err != nil {
				return err
			}

			opts := []server.Option{server.WithLogger(c.Logger)}
			if !noMetrics {
				opts = append(opts, server.WithMetrics(observability.NewMetrics()))
			}
			srv := server.New(env.device, env.presets, opts...)

			printInfo("Listening on %s", StyleLink.Render("http://localhost"+addr))
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "disable the /metrics endpoint")
	return cmd
}
