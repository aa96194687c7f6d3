package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphweave/graphweave/config"
	"github.com/graphweave/graphweave/model"
)

var validateCmd = &cobra.Command{
	Use:   "validate <model.yaml>",
	Short: "Validate a model document",
	Long: `Validate parses a model document, checks it against the document
rules, and builds the type registry. Exit status is non-zero when the
model is rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := config.Load(args[0])
		if err != nil {
			return err
		}
		reg, err := model.NewRegistry(doc)
		if err != nil {
			return err
		}
		fmt.Printf("ok: %d types\n", len(reg.Types()))
		return nil
	},
}
