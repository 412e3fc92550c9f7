package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dkarpov/netarcade/internal/config"
	"github.com/dkarpov/netarcade/internal/storage"
)

var (
	flagMatchLimit  int
	flagMatchPlayer string
)

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "Show recently finished matches",
	Long: `Display recently finished matches from the server database.

Examples:
  netarcade matches
  netarcade matches --limit 5
  netarcade matches --player alice`,
	Run: runMatches,
}

func init() {
	matchesCmd.Flags().IntVar(&flagMatchLimit, "limit", 20, "Maximum number of matches to show")
	matchesCmd.Flags().StringVar(&flagMatchPlayer, "player", "", "Only show matches of this player")
}

func runMatches(_ *cobra.Command, _ []string) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	var entries []storage.MatchEntry
	if flagMatchPlayer != "" {
		entries, err = store.PlayerHistory(flagMatchPlayer, flagMatchLimit)
	} else {
		entries, err = store.RecentRecords(flagMatchLimit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving matches: %v\n", err)
		os.Exit(1)
	}

	if len(entries) == 0 {
		fmt.Println("No matches recorded yet.")
		return
	}

	fmt.Printf("  %-8s  %-12s  %-12s  %-12s  %s\n", "Game", "Player 1", "Player 2", "Winner", "Finished")
	fmt.Printf("  %-8s  %-12s  %-12s  %-12s  %s\n", "----", "--------", "--------", "------", "--------")
	for _, e := range entries {
		fmt.Printf("  %-8s  %-12s  %-12s  %-12s  %s\n",
			e.GameName, e.Player1, e.Player2, e.Winner, e.FinishedAt.Format("2006-01-02 15:04"))
	}
}
