package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/graphweave/graphweave/backend"
	"github.com/graphweave/graphweave/backend/cypher"
	"github.com/graphweave/graphweave/backend/gremlin"
)

var pingBackend string

// pingCmd checks that the configured database is reachable. Connection
// settings come from GRAPHWEAVE_* environment variables, with .env
// support for local development.
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Verify connectivity to the configured graph database",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		var pool backend.Pool
		var err error
		switch pingBackend {
		case "cypher":
			pool, err = cypher.NewPool(ctx, cypher.PoolConfig{
				URI:      viper.GetString("neo4j_uri"),
				Username: viper.GetString("neo4j_username"),
				Password: viper.GetString("neo4j_password"),
				Database: viper.GetString("neo4j_database"),
			})
		case "gremlin":
			pool, err = gremlin.NewPool(gremlin.PoolConfig{
				URL:      viper.GetString("gremlin_url"),
				Username: viper.GetString("gremlin_username"),
				Password: viper.GetString("gremlin_password"),
			})
		default:
			return fmt.Errorf("unknown backend %q (want cypher or gremlin)", pingBackend)
		}
		if err != nil {
			return err
		}
		defer pool.Close(ctx)

		conn, err := pool.Acquire(ctx)
		if err != nil {
			return err
		}
		defer conn.Close(ctx)

		fmt.Printf("%s backend reachable\n", pingBackend)
		return nil
	},
}

func init() {
	pingCmd.Flags().StringVar(&pingBackend, "backend", "cypher", "target backend: cypher or gremlin")
}
