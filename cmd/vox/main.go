package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "vox",
		Short: "Vox - Voice-to-code prompt translation pipeline",
		Long: `Vox translates natural language into structured prompts, routes them
across model providers with automatic fallback, and can drive a
multi-role agent pipeline from architecture through testing.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
