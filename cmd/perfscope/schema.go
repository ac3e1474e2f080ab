package main

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/perfscope/perfscope/pkg/baseline"
	"github.com/perfscope/perfscope/pkg/history"
	"github.com/perfscope/perfscope/pkg/investigation"
)

var schemaCmd = &cobra.Command{
	Use:   "schema <baseline|investigation|run>",
	Short: "Print the JSON schema of a persisted document type",
	Long: `Print the JSON schema of one of perfscope's persisted document types.
Assistant plugins ship these schemas alongside their slash commands so the
host can validate documents it reads back.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return printSchema(args[0])
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

func printSchema(docType string) error {
	var target interface{}
	switch docType {
	case "baseline":
		target = &baseline.Baseline{}
	case "investigation":
		target = &investigation.Investigation{}
	case "run":
		target = &history.Run{}
	default:
		return errors.Errorf("unknown document type %q (want baseline, investigation, or run)", docType)
	}

	schema := jsonschema.Reflect(target)
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal schema")
	}

	fmt.Println(string(data))
	return nil
}
