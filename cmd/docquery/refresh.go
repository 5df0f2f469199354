package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rebuild the metadata snapshot and the embedding index",
		Long: `refresh re-samples every collection and re-embeds their descriptions.
The embedding index is written to embedding.index_path, so the next serve
starts without calling the embedding model.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, envFlag(cmd))
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.assistant.Refresh(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
