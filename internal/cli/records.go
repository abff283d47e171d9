package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-airtable/airtable"
	"github.com/go-airtable/airtable/core"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <table> <record-id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := base.Table(args[0]).Find(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			return printRecord(cmd.OutOrStdout(), record)
		},
	}
}

func newCreateCmd() *cobra.Command {
	var (
		sets     []string
		rawJSON  string
		typecast bool
	)
	cmd := &cobra.Command{
		Use:   "create <table>",
		Short: "Create a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(sets, rawJSON)
			if err != nil {
				return err
			}
			record, err := base.Table(args[0]).Create(cmd.Context(), fields, writeOptions(typecast))
			if err != nil {
				return err
			}
			return printRecord(cmd.OutOrStdout(), record)
		},
	}
	addFieldFlags(cmd, &sets, &rawJSON, &typecast)
	return cmd
}

// newUpdateCmd builds "update" (PATCH, untouched fields are kept) or
// "replace" (PUT, untouched fields are cleared).
func newUpdateCmd(replace bool) *cobra.Command {
	var (
		sets     []string
		rawJSON  string
		typecast bool
	)
	use, short := "update", "Change fields of a record"
	if replace {
		use, short = "replace", "Replace all fields of a record"
	}
	cmd := &cobra.Command{
		Use:   use + " <table> <record-id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(sets, rawJSON)
			if err != nil {
				return err
			}
			table := base.Table(args[0])
			var record *airtable.Record
			if replace {
				record, err = table.Replace(cmd.Context(), args[1], fields, writeOptions(typecast))
			} else {
				record, err = table.Update(cmd.Context(), args[1], fields, writeOptions(typecast))
			}
			if err != nil {
				return err
			}
			return printRecord(cmd.OutOrStdout(), record)
		},
	}
	addFieldFlags(cmd, &sets, &rawJSON, &typecast)
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table> <record-id>...",
		Short: "Delete one or more records",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table := base.Table(args[0])
			ids := args[1:]
			var deleted []*airtable.Record
			if len(ids) == 1 {
				record, err := table.Destroy(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				deleted = append(deleted, record)
			} else {
				var err error
				if deleted, err = table.DestroyBatch(cmd.Context(), ids); err != nil {
					return err
				}
			}
			set := make(core.RecordSet, 0, len(deleted))
			for _, record := range deleted {
				set = append(set, core.Record{"id": record.ID(), "deleted": true})
			}
			return render(cmd.OutOrStdout(), set)
		},
	}
}

func addFieldFlags(cmd *cobra.Command, sets *[]string, rawJSON *string, typecast *bool) {
	cmd.Flags().StringArrayVar(sets, "set", nil, "Field value as name=value (repeatable); JSON values are decoded")
	cmd.Flags().StringVar(rawJSON, "json", "", "Fields as a JSON object")
	cmd.Flags().BoolVar(typecast, "typecast", false, "Let the server convert string values to the field type")
}

func writeOptions(typecast bool) airtable.Params {
	if typecast {
		return airtable.Params{"typecast": true}
	}
	return airtable.Params{}
}

// parseFields merges the --json object with --set pairs. Pairs win. A value
// that parses as JSON (5, true, ["a"]) is used decoded, anything else as a string.
func parseFields(sets []string, rawJSON string) (airtable.Fields, error) {
	fields := airtable.Fields{}
	if rawJSON != "" {
		if err := json.Unmarshal([]byte(rawJSON), &fields); err != nil {
			return nil, fmt.Errorf("invalid --json: %w", err)
		}
	}
	for _, pair := range sets {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q: expected name=value", pair)
		}
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			fields[name] = decoded
		} else {
			fields[name] = value
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("no fields given: use --set or --json")
	}
	return fields, nil
}
