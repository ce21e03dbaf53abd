package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/synaptica-ai/clinextract/pkg/clinical"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file|-]",
	Short: "Extract clinical fields from a transcript",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readTranscript(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		method, _ := cmd.Flags().GetString("method")
		mode, _ := cmd.Flags().GetString("mode")
		asJSON, _ := cmd.Flags().GetBool("json")

		svc, stop, err := startService(cmd.Context())
		if err != nil {
			return err
		}
		defer stop()

		result := svc.Extract(cmd.Context(), text, method, clinical.UsageMode(mode))
		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
		} else {
			fmt.Fprint(out, renderResult(result))
		}
		if result.ExtractionMethod == clinical.ResultMethodError {
			return fmt.Errorf("extraction failed: %v", result.ValidationErrors)
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().StringP("method", "m", "", "extraction method: llm or ner (default from EXTRACTION_DEFAULT_METHOD)")
	extractCmd.Flags().String("mode", "", "usage mode, e.g. Checkup")
	extractCmd.Flags().Bool("json", false, "print the raw extraction result as JSON")

	rootCmd.AddCommand(extractCmd)
}
