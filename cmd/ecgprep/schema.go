package main

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"ecgprep/internal/config"
	"ecgprep/pkg/contracts/domain"
)

// Schema targets for the schema command.
const (
	schemaConfig = "config"
	schemaReport = "report"
)

func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "schema [config|report]",
		Short:     "Print the JSON schema of the configuration file or conversion report",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{schemaConfig, schemaReport},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := schemaConfig
			if len(args) == 1 {
				target = args[0]
			}
			data, err := generateSchema(target)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
	return cmd
}

func generateSchema(target string) ([]byte, error) {
	var schema *jsonschema.Schema
	switch target {
	case schemaConfig:
		r := &jsonschema.Reflector{
			AllowAdditionalProperties: true,
			ExpandedStruct:            true,
			FieldNameTag:              "yaml",
		}
		schema = r.Reflect(&config.Config{})
		schema.Title = "ecgprep configuration"
		schema.Description = "Schema for ecgprep.yaml."
	case schemaReport:
		r := &jsonschema.Reflector{ExpandedStruct: true}
		schema = r.Reflect(&domain.ConversionReport{})
		schema.Title = "ecgprep conversion report"
		schema.Description = "Schema for the JSON report written after every conversion run."
	default:
		return nil, fmt.Errorf("unknown schema %q", target)
	}
	return json.MarshalIndent(schema, "", "  ")
}
