package main

import (
	"encoding/json"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"fleet-admin/internal/model"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the state document",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshotSchema())
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

func snapshotSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := r.Reflect(&model.Snapshot{})
	schema.Title = "fleet-admin state"
	return schema
}
