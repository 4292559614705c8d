package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "showctl",
	Short: "Showctl is a command line tool for operating showplane raffles",
	Long: `showctl is the command-line interface for the showplane live showcase platform.

Showplane selects contestants for scheduled live events with a deterministic,
publicly verifiable raffle: every entrant's random number derives from a
published seed, so anyone can recompute the draw and check the outcome.

Common workflows:

  Dry-run a raffle from an entrants file:
    showctl raffle --entrants entrants.json --capacity 20

  Re-run with a fixed seed and publish the full record:
    showctl raffle --entrants entrants.json --capacity 20 --seed 1718000000000-a1b2c3d4e5f60718 --publish outcome.json

  Independently verify a published outcome:
    showctl verify outcome.json

  Run database migrations:
    showctl migrate

Configuration:
  Set the database connection via environment variable or a config file:
    SHOWPLANE_DATABASE_URL    Postgres connection string (migrate only)`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".showctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".showctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "SHOWPLANE_VARNAME"
	viper.SetEnvPrefix("SHOWPLANE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.showctl.yaml)")

	rootCmd.PersistentFlags().String("database-url", "", "Postgres connection string")
	viper.BindPFlag("database_url", rootCmd.PersistentFlags().Lookup("database-url"))
}
