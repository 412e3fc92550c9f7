package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dkarpov/netarcade/internal/config"
	"github.com/dkarpov/netarcade/internal/transport/ws"
)

var flagTokenAlias string

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue a signed identity token",
	Long: `Sign an identity token for an account using the server's key.

The token authenticates a websocket connection when passed as the token
query parameter on /ws.

Examples:
  netarcade token u-42 --alias alice`,
	Args: cobra.ExactArgs(1),
	Run:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&flagTokenAlias, "alias", "", "Display name carried in the token")
}

func runToken(_ *cobra.Command, args []string) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	secret, err := ws.LoadOrCreateSecret(expandHome(cfg.Auth.KeyDir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading signing key: %v\n", err)
		os.Exit(1)
	}

	alias := flagTokenAlias
	if alias == "" {
		alias = args[0]
	}

	verifier := ws.NewVerifier(secret)
	fmt.Println(verifier.IssueToken(args[0], alias, cfg.Auth.TokenTTL.Std()))
}
