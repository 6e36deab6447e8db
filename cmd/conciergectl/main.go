package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiFlag   string
	tokenFlag string
	rootCmd   = &cobra.Command{
		Use:   "conciergectl",
		Short: "CLI client for the concierge REST API",
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "Concierge service base URL")
	rootCmd.PersistentFlags().StringVarP(&tokenFlag, "token", "t", "", "Bearer token (from auth login)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
