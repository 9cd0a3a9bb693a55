package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/skyfence/detection-api/internal/aggregate"
)

var statsStream string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print detection statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := aggregate.Stats(ctx, st, statsStream)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsStream, "stream", "", "limit stats to one stream")
	rootCmd.AddCommand(statsCmd)
}
