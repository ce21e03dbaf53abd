package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/synaptica-ai/clinextract/pkg/llm"
)

var methodsCmd = &cobra.Command{
	Use:   "methods",
	Short: "Show each extraction backend and whether it is available",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, stop, err := startService(cmd.Context())
		if err != nil {
			return err
		}
		defer stop()

		fmt.Fprint(cmd.OutOrStdout(), renderMethods(svc.DefaultMethod(), svc.AvailableMethods(cmd.Context())))
		return nil
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema the LLM answer is validated against",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := json.MarshalIndent(llm.FieldSetSchema(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(raw))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(methodsCmd)
	rootCmd.AddCommand(schemaCmd)
}
