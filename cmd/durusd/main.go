// Command durusd serves one or more durus-style object databases over
// the network, per spec.md.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kdurus/durusd/internal/admin"
	"github.com/kdurus/durusd/internal/coordinator"
	"github.com/kdurus/durusd/internal/dlog"
	"github.com/kdurus/durusd/internal/server"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "durusd",
	Short:   "durusd serves durus-style object databases over the network",
	Version: version,
	RunE:    runServe,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("durusd version %s (%s)\n", version, commit))

	flags := rootCmd.Flags()
	flags.String("path", "", "database root directory (required)")
	flags.String("host", "127.0.0.1", "bind host")
	flags.Int("port", 22972, "bind port")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "emit logs as JSON")
	flags.String("admin-addr", "127.0.0.1:9090", "admin health/metrics listen address")

	viper.BindPFlags(flags)
	viper.SetEnvPrefix("durusd")
	viper.AutomaticEnv()
}

func runServe(cmd *cobra.Command, args []string) error {
	dlog.Init(dlog.Config{
		Level:      viper.GetString("log-level"),
		JSONOutput: viper.GetBool("log-json"),
	})
	log := dlog.WithComponent("main")

	root := viper.GetString("path")
	if root == "" {
		return fmt.Errorf("--path is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("create database root: %w", err)
	}

	coord, err := coordinator.NewServer(root)
	if err != nil {
		return fmt.Errorf("initialize coordinator: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", viper.GetString("host"), viper.GetInt("port"))
	dispatcher, err := server.Listen(addr, coord)
	if err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}

	adminSrv := admin.New(viper.GetString("admin-addr"), coord.Registry)
	go func() {
		if err := adminSrv.ListenAndServe(); err != nil {
			log.Warn().Err(err).Msg("admin server stopped")
		}
	}()

	log.Info().Str("root", root).Str("addr", addr).Msg("durusd starting")
	if err := dispatcher.Serve(); err != nil {
		return err
	}
	adminSrv.Close()
	log.Info().Msg("durusd shut down")
	return nil
}
