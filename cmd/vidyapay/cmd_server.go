package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/vidyapay/config"
	"github.com/shashiranjanraj/vidyapay/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		app, err := server.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		return app.Run(cmd.Context())
	},
}

var routeListCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the registered route table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		app, err := server.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		names := app.Router.Names()
		keys := make([]string, 0, len(names))
		for name := range names {
			keys = append(keys, name)
		}
		sort.Strings(keys)

		for _, name := range keys {
			fmt.Printf("%-28s %s\n", name, names[name])
		}
		return nil
	},
}
