package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/vidyapay/config"
	"github.com/shashiranjanraj/vidyapay/database/seeders"
	"github.com/shashiranjanraj/vidyapay/pkg/database"
	"github.com/shashiranjanraj/vidyapay/pkg/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with a default admin and demo data",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger.Setup(cfg.IsProduction())

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return err
		}
		defer db.Close(context.Background()) //nolint:errcheck

		return seeders.RunAll(ctx, cfg, db)
	},
}
