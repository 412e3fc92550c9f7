// netarcade is the backend for a browser arcade: real-time pong and tetris
// sessions over websockets, with an AI opponent and knockout tournaments.
//
// Usage:
//
//	netarcade serve            - Start the arcade server
//	netarcade token <user>     - Issue a signed identity token
//	netarcade matches          - Show recently finished matches
//
// Global flags:
//
//	--config <path>  - Path to a YAML config file
//	--seed <value>   - RNG seed for reproducible matches (0 = time-based)
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	flagConfig string
	flagSeed   int64
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "netarcade",
	Short: "netarcade - browser arcade match server",
	Long: `netarcade runs the authoritative game server behind a browser arcade:
fixed-tick pong and tetris sessions, a CPU opponent, and single-elimination
tournaments, all over websockets.

Available commands:
  serve    - Start the arcade server
  token    - Issue a signed identity token for an account
  matches  - Show recently finished matches

Examples:
  netarcade serve
  netarcade serve --config ./configs/server.yaml
  netarcade token u-42 --alias alice
  netarcade matches --limit 10`,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(matchesCmd)
}
