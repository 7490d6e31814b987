package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "elemstream",
		Short: "Stream typed records out of large XML documents",
	}

	rootCmd.AddCommand(newStreamCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
