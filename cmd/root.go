package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dFeed/cmd/bench"
	"github.com/ValentinKolb/dFeed/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dfeed",
		Short: "write-fanout activity-feed engine",
		Long: fmt.Sprintf(`dFeed (v%s)

A write-fanout activity-feed engine written in Go: flat, aggregated
and notification feeds with pluggable storage backends.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dFeed",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dFeed v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(bench.BenchCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "backend"
	RootCmd.PersistentFlags().String(key, "memory", util.WrapString("storage backend to use (memory, redis)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	util.InitConfig()
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
