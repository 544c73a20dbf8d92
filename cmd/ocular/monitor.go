package main

import (
	"context"
	"fmt"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/ocular/config"
	"github.com/sarchlab/ocular/monitor"
	"github.com/sarchlab/ocular/router"
)

var (
	monitorNets int
	monitorEnv  string
	monitorPort int
	monitorOpen bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Route a generated scenario while exposing progress over HTTP",
	RunE:  runMonitor,
}

func init() {
	monitorCmd.Flags().IntVar(&monitorNets, "nets", 4, "number of nets converging on the bottleneck")
	monitorCmd.Flags().StringVar(&monitorEnv, "env", ".env", "path to an OCULAR_* .env file")
	monitorCmd.Flags().IntVar(&monitorPort, "port", 0, "HTTP port; 0 picks a random free port")
	monitorCmd.Flags().BoolVar(&monitorOpen, "open", false, "open the dashboard's base URL in a browser")
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(monitorEnv)
	if err != nil {
		return err
	}

	mon := monitor.NewMonitor().WithPortNumber(monitorPort)
	cfg.Hooks = append(cfg.Hooks, mon)

	addr := mon.StartServer()
	fmt.Fprintf(cmd.OutOrStdout(), "monitor listening at %s\n", addr)

	if monitorOpen {
		if err := browser.OpenURL(addr); err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "could not open browser: %v\n", err)
		}
	}

	actx := buildScenario(monitorNets)

	stats, err := router.Route(context.Background(), actx, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "success=%v passes=%d routed=%d\n",
		stats.Success, stats.Passes, stats.NetsRouted)

	return nil
}
