package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"showplane/internal/store/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Apply all pending schema migrations to the configured Postgres database.`,
	Run: func(cmd *cobra.Command, args []string) {
		databaseURL := viper.GetString("database_url")
		if databaseURL == "" {
			cmd.Println("Database URL not found. Please set it using the --database-url flag or the SHOWPLANE_DATABASE_URL environment variable")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		store, err := postgres.New(ctx, databaseURL)
		if err != nil {
			cmd.Printf("Failed to connect to database: %v\n", err)
			return
		}
		defer store.Close()

		cmd.Println("Running database migrations...")
		if err := postgres.Migrate(store.DB()); err != nil {
			cmd.Printf("Migration failed: %v\n", err)
			return
		}
		cmd.Println("Migrations completed successfully")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
