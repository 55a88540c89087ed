package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "askme",
		Short:         "Answer questions about a person from a CSV knowledge base",
		Long:          "askme embeds a CSV knowledge base, retrieves the records closest to a question and asks a chat model to answer in the person's voice.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var flags globalFlags
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "",
		"Config file (default: config/$ENV.yaml)")
	rootCmd.PersistentFlags().StringVar(&flags.corpusPath, "corpus", "", "Override corpus.path")

	rootCmd.AddCommand(createServeCommand(&flags))
	rootCmd.AddCommand(createAskCommand(&flags))
	rootCmd.AddCommand(createVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
