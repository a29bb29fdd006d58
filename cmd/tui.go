/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/listkeep/apiserver/internal/client"
	"github.com/listkeep/apiserver/internal/ui"
	"github.com/spf13/cobra"
)

var (
	tuiServerURL string
	tuiCacheDir  string
)

// tuiCmd represents the tui command
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Starts the terminal client",
	Long: `Starts the terminal client. It talks to a running listkeep server and
falls back to a local cache when the server is unreachable. Usage:

	listkeep tui --server http://localhost:8000
`,
	Run: func(cmd *cobra.Command, args []string) {
		cacheDir := tuiCacheDir
		if cacheDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to locate home dir: %v\n", err)
				os.Exit(1)
			}
			cacheDir = filepath.Join(home, ".listkeep")
		}

		api := client.New(tuiServerURL)
		cache := client.NewShadowCache(cacheDir)
		ctrl := client.NewController(api, cache)

		if err := ui.RunTUI(cmd.Context(), ctrl); err != nil {
			fmt.Fprintf(os.Stderr, "tui error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().StringVar(&tuiServerURL, "server", "http://localhost:8000", "base URL of the listkeep server")
	tuiCmd.Flags().StringVar(&tuiCacheDir, "cache-dir", "", "directory for the local session and shadow cache (default ~/.listkeep)")
}
