package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-airtable/airtable"
	"github.com/go-airtable/airtable/core"
)

func newListCmd() *cobra.Command {
	var (
		view       string
		formula    string
		maxRecords int
		pageSize   int
		fields     []string
		sorts      []string
		firstPage  bool
	)
	cmd := &cobra.Command{
		Use:   "list <table>",
		Short: "List records of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := airtable.Params{}
			if view != "" {
				params[core.ParamView] = view
			}
			if formula != "" {
				params[core.ParamFilterByFormula] = formula
			}
			if maxRecords > 0 {
				params[core.ParamMaxRecords] = maxRecords
			}
			if pageSize > 0 {
				params[core.ParamPageSize] = pageSize
			}
			if len(fields) > 0 {
				params[core.ParamFields] = fields
			}
			if len(sorts) > 0 {
				sort, err := parseSort(sorts)
				if err != nil {
					return err
				}
				params[core.ParamSort] = sort
			}

			query, err := base.Table(args[0]).Select(params)
			if err != nil {
				return err
			}
			var records []*airtable.Record
			if firstPage {
				records, err = query.FirstPage(cmd.Context())
			} else {
				records, err = query.All(cmd.Context())
			}
			if err != nil {
				return err
			}
			logger.Debug("listed records", "table", args[0], "count", len(records))
			return printRecords(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().StringVar(&view, "view", "", "Only records visible in this view")
	cmd.Flags().StringVar(&formula, "formula", "", "Filter formula")
	cmd.Flags().IntVar(&maxRecords, "max-records", 0, "Maximum number of records to return")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Records per request")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "Field to include (repeatable)")
	cmd.Flags().StringArrayVar(&sorts, "sort", nil, "Sort by field, as name or name:desc (repeatable)")
	cmd.Flags().BoolVar(&firstPage, "first-page", false, "Fetch only the first page")
	return cmd
}

// parseSort turns "Name" and "Name:desc" into sort objects.
func parseSort(specs []string) ([]map[string]string, error) {
	sort := make([]map[string]string, 0, len(specs))
	for _, spec := range specs {
		field, direction, found := strings.Cut(spec, ":")
		if field == "" {
			return nil, fmt.Errorf("invalid sort %q: missing field", spec)
		}
		item := map[string]string{"field": field}
		if found {
			direction = strings.ToLower(direction)
			if direction != "asc" && direction != "desc" {
				return nil, fmt.Errorf("invalid sort %q: direction must be asc or desc", spec)
			}
			item["direction"] = direction
		}
		sort = append(sort, item)
	}
	return sort, nil
}
