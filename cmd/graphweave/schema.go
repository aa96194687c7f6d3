package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphweave/graphweave/config"
	"github.com/graphweave/graphweave/model"
	"github.com/graphweave/graphweave/schema"
)

var schemaShowShapes bool

var schemaCmd = &cobra.Command{
	Use:   "schema <model.yaml>",
	Short: "Print the operations derived from a model document",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := config.Load(args[0])
		if err != nil {
			return err
		}
		reg, err := model.NewRegistry(doc)
		if err != nil {
			return err
		}
		catalog := schema.Derive(reg)

		for _, name := range catalog.Operations() {
			op, _ := catalog.Operation(name)
			if op.OutputShape != "" {
				fmt.Printf("%s(%s) -> %s\n", op.Name, op.InputShape, op.OutputShape)
			} else {
				fmt.Printf("%s(%s) -> count\n", op.Name, op.InputShape)
			}
		}
		if schemaShowShapes {
			fmt.Println()
			for _, name := range catalog.ShapeNames() {
				s, _ := catalog.Shape(name)
				fmt.Printf("%s:\n", name)
				for _, f := range s.Fields() {
					fmt.Printf("  %s: %s\n", f.Name, f.TypeName)
				}
			}
		}
		return nil
	},
	Args: cobra.ExactArgs(1),
}

func init() {
	schemaCmd.Flags().BoolVar(&schemaShowShapes, "shapes", false, "also print every derived shape")
}
