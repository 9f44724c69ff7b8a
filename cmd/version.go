package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped by the build; "dev" for local runs.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("grocery-cart-automater %s\n", Version)
	},
}
