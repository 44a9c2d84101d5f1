package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "delivery_tracker",
	Short: "Delivery tracking service for bookings, customers and proof of delivery",
	Long: `A service that records delivery bookings, keeps a deduplicated customer
roster, and runs the proof-of-delivery completion workflow. Data lives in a
remote relational store with a transparent local cache fallback.`,
	Run: func(cmd *cobra.Command, args []string) {
		err := cmd.Help()
		if err != nil {
			log.Error().Err(err).Msg("Failed to display help")
		}
	},
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize()
}
