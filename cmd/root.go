package cmd

import (
	"fmt"
	"net/http"
	"os"

	"github.com/agentic-research/trisort/api"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var (
	configPath   string
	levels       int
	bucketLevel  int
	workers      int
	pointsSel    string
	trianglesSel string
	logLevel     string
	metricsAddr  string
)

func init() {
	defaults := api.DefaultBuildConfig()
	sel := api.DefaultMeshSelectors()

	f := rootCmd.PersistentFlags()
	f.StringVarP(&configPath, "config", "c", "", "Path to an HCL build config")
	f.IntVarP(&levels, "levels", "l", defaults.Levels, "Domain exponent: the domain is a cube of side 2^levels")
	f.IntVarP(&bucketLevel, "bucket-level", "b", defaults.BucketLevel, "Level at which triangle references are stored")
	f.IntVarP(&workers, "workers", "w", defaults.Workers, "Number of shards for parallel builds")
	f.StringVar(&pointsSel, "points", sel.Points, "JSONPath selecting the point array of the mesh document")
	f.StringVar(&trianglesSel, "triangles", sel.Triangles, "JSONPath selecting the triangle array of the mesh document")
	f.StringVar(&logLevel, "log-level", logs.InfoLevel.String(), "Log level (debug|info|warning|error)")
	f.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
}

var rootCmd = &cobra.Command{
	Use:           "trisort",
	Short:         "trisort: sort mesh triangles into a sparse octree index",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logs.SetLevel(logs.ParseLevel(logLevel))
		if metricsAddr != "" {
			go serveMetrics(metricsAddr)
		}
		return nil
	},
}

// resolveConfig starts from the defaults, applies the config file if one
// was given, then any flag the user set explicitly.
func resolveConfig(cmd *cobra.Command) (api.BuildConfig, error) {
	cfg := api.DefaultBuildConfig()
	if configPath != "" {
		var err error
		if cfg, err = api.LoadConfig(configPath); err != nil {
			return api.BuildConfig{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("levels") {
		cfg.Levels = levels
	}
	if flags.Changed("bucket-level") {
		cfg.BucketLevel = bucketLevel
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	sel := cfg.Selectors()
	if flags.Changed("points") {
		sel.Points = pointsSel
	}
	if flags.Changed("triangles") {
		sel.Triangles = trianglesSel
	}
	cfg.Mesh = &sel
	return cfg, nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logs.WithTag("addr", addr).Info("serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logs.Warn(errors.New("metrics server stopped").Wrap(err))
	}
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
