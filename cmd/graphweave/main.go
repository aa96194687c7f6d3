package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/graphweave/graphweave/config"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	verbose bool
	logger  *logrus.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "graphweave",
	Short: "GraphWeave - model-driven CRUD engine for graph databases",
	Long: `GraphWeave derives typed create, read, update, and delete operations
from a declarative model document and executes them against Neo4j or
any Gremlin-speaking graph database.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logrus.New()
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}
		config.LoadEnv()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetVersionTemplate(`GraphWeave {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	viper.SetEnvPrefix("graphweave")
	viper.AutomaticEnv()

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(pingCmd)
}
