// Command durus is a scripting-oriented client shell for durusd: it
// mirrors the client library's server/registry-level operations for
// operational use, without attempting the original's interactive shell
// experience.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kdurus/durusd/pkg/client"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var addr string

var rootCmd = &cobra.Command{
	Use:   "durus",
	Short: "durus is a scripting client for a durusd server",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "127.0.0.1:22972", "durusd address")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(listOpenCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(destroyCmd)
}

func connect() (*client.Client, error) {
	return client.Connect(addr)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "confirm the server speaks the expected protocol version",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		defer c.Close()
		fmt.Println("protocol handshake ok")
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list every database known to exist on disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		defer c.Close()
		names, err := c.EnumerateAll()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

var listOpenCmd = &cobra.Command{
	Use:   "list-open",
	Short: "list every currently open database",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		defer c.Close()
		names, err := c.EnumerateOpen()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

var openCmd = &cobra.Command{
	Use:   "open [database]",
	Short: "open a database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		defer c.Close()
		return c.Open(args[0])
	},
}

var closeCmd = &cobra.Command{
	Use:   "close [database]",
	Short: "close a database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		defer c.Close()
		return c.CloseDB(args[0])
	},
}

var destroyCmd = &cobra.Command{
	Use:   "destroy [database]",
	Short: "destroy a database (refused while open)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		defer c.Close()
		return c.Destroy(args[0])
	},
}
