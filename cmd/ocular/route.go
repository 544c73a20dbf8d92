package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/ocular/config"
	"github.com/sarchlab/ocular/router"
	"github.com/sarchlab/ocular/tracing"
)

var (
	routeNets  int
	routeEnv   string
	routeTrace string
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Route a generated bottleneck scenario and report the resulting Stats",
	RunE:  runRoute,
}

func init() {
	routeCmd.Flags().IntVar(&routeNets, "nets", 4, "number of nets converging on the bottleneck")
	routeCmd.Flags().StringVar(&routeEnv, "env", ".env", "path to an OCULAR_* .env file")
	routeCmd.Flags().StringVar(&routeTrace, "trace", "", "if set, persist pass/net events to this SQLite file")
}

func runRoute(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(routeEnv)
	if err != nil {
		return err
	}

	if routeTrace != "" {
		writer, err := tracing.NewSQLiteEventWriter(routeTrace)
		if err != nil {
			return err
		}
		defer writer.Close()
		cfg.Hooks = append(cfg.Hooks, writer)
	}

	actx := buildScenario(routeNets)

	stats, err := router.Route(context.Background(), actx, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "success=%v passes=%d routed=%d overused=%d failed=%d\n",
		stats.Success, stats.Passes, stats.NetsRouted, stats.OverusedWires, len(stats.FailedNets))

	return nil
}
