package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/output"
	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/tools"
)

var toolsOutput string

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List available market data tools",
	Long:  "List the tool catalog: names, descriptions, and parameters.",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(toolsOutput)
		if err != nil {
			return err
		}

		rendered, err := output.FormatCatalog(format, tools.Catalog())
		if err != nil {
			return err
		}
		fmt.Println(rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)

	toolsCmd.Flags().StringVar(&toolsOutput, "output", "table", "Output format: table, json, yaml")
}
