package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "portal",
	Short: "Restaurant portal service and support chat client",
	Long: `portal sits between the restaurant portal and the food delivery API. It
serves the portal HTTP API (orders, restaurants, support chat) and can run a
support chat session directly from the terminal.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("api-base-url", "", "food delivery API base url")
	rootCmd.PersistentFlags().String("socket-url", "", "chat socket url")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
