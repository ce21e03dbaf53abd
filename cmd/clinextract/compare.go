package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/synaptica-ai/clinextract/pkg/clinical"
)

var compareCmd = &cobra.Command{
	Use:   "compare [file|-]",
	Short: "Run both backends on a transcript and compare their fields",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readTranscript(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		mode, _ := cmd.Flags().GetString("mode")
		asJSON, _ := cmd.Flags().GetBool("json")

		svc, stop, err := startService(cmd.Context())
		if err != nil {
			return err
		}
		defer stop()

		cmp := svc.Compare(cmd.Context(), text, clinical.UsageMode(mode))
		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(cmp)
		}
		fmt.Fprint(out, renderComparison(cmp))
		return nil
	},
}

func init() {
	compareCmd.Flags().String("mode", "", "usage mode, e.g. Checkup")
	compareCmd.Flags().Bool("json", false, "print the comparison as JSON")

	rootCmd.AddCommand(compareCmd)
}
