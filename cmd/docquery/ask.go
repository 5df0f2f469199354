package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var compileOnly bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question and print the result as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, envFlag(cmd))
			if err != nil {
				return err
			}
			defer a.Close()

			question := strings.Join(args, " ")
			if err := a.warmUp(ctx); err != nil {
				return err
			}

			var out any
			if compileOnly {
				out, err = a.assistant.Compile(question)
			} else {
				out, err = a.assistant.Ask(ctx, question)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("encode answer: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&compileOnly, "compile-only", false, "print the compiled pipeline without running it")
	return cmd
}
