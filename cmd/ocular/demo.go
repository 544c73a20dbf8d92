package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/ocular/internal/hook"
	"github.com/sarchlab/ocular/router"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a small built-in congestion scenario and print pass-by-pass progress",
	RunE:  runDemo,
}

// printHook prints every pass/net/overuse event as it happens — the
// `demo` subcommand's only consumer of the hook mechanism, so a newcomer
// can watch rip-up-and-reroute converge without reading Stats at the end.
type printHook struct{}

func (printHook) Func(ctx hook.HookCtx) {
	name := "?"
	if ctx.Pos != nil {
		name = ctx.Pos.Name
	}
	fmt.Printf("%-11s %v\n", name, ctx.Item)
}

func runDemo(cmd *cobra.Command, _ []string) error {
	cfg := router.DefaultConfig()
	cfg.Hooks = append(cfg.Hooks, printHook{})

	actx := buildScenario(3)

	stats, err := router.Route(context.Background(), actx, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nsuccess=%v passes=%d routed=%d\n",
		stats.Success, stats.Passes, stats.NetsRouted)

	return nil
}
