// Command clinextract runs clinical field extraction on transcripts from
// the terminal.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/synaptica-ai/clinextract/pkg/common/config"
	"github.com/synaptica-ai/clinextract/pkg/common/logger"
)

var rootCmd = &cobra.Command{
	Use:   "clinextract",
	Short: "Extract structured clinical fields from Italian transcripts",
	Long: `clinextract reads an emergency or checkup transcript and extracts the
29 clinical fields (patient data, vital signs, assessment) with either the
LLM backend or the NER backend, or both side by side.

Configuration comes from --config (yaml), CLINEXTRACT_* environment
variables, and the plain variable names the extraction service reads.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Log.SetOutput(os.Stderr)
		level := "warn"
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = "debug"
		}
		logger.SetLevel(level)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./clinextract.yaml or ~/.config/clinextract/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log backend activity to stderr")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("clinextract")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "clinextract"))
		}
	}

	viper.SetEnvPrefix("CLINEXTRACT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig resolves each key through viper first, then the raw
// environment variable.
func loadConfig() *config.Config {
	return config.LoadWithLookup(func(key string) string {
		if v := strings.TrimSpace(viper.GetString(key)); v != "" {
			return v
		}
		return os.Getenv(key)
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
