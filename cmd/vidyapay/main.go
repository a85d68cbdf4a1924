package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vidyapay",
	Short: "vidyapay school-fee payment aggregator backend",
	Long:  "vidyapay aggregates school-fee collections through an external payment gateway and reconciles their status via webhooks and polling.",
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(routeListCmd)

	// Bare `vidyapay` serves.
	rootCmd.RunE = serveCmd.RunE
}
