// Command ocular is the CLI entry point for the negotiated-congestion
// router: `route` runs it against a generated architecture and reports
// Stats, `demo` runs a small built-in bottleneck scenario and prints
// pass-by-pass progress, and `monitor` does the same as route but exposes
// the run over HTTP while it runs. Adapted from the teacher's akita/cmd
// cobra root command.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ocular",
	Short: "ocular runs the GPGPU-style negotiated-congestion FPGA router",
}

func main() {
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(monitorCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
