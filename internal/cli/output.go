package cli

import (
	"fmt"
	"io"

	"github.com/go-airtable/airtable"
	"github.com/go-airtable/airtable/core"
)

func printRecords(w io.Writer, records []*airtable.Record) error {
	set := make(core.RecordSet, 0, len(records))
	for _, record := range records {
		if flagOutput == "json" {
			set = append(set, record.RawJSON())
			continue
		}
		row := core.Record{"id": record.ID()}
		for name, value := range record.Fields() {
			row[name] = value
		}
		set = append(set, row)
	}
	if set.Empty() && flagOutput != "json" {
		_, err := fmt.Fprintln(w, "No records found")
		return err
	}
	return render(w, set)
}

func printRecord(w io.Writer, record *airtable.Record) error {
	if flagOutput == "json" {
		return render(w, record.RawJSON())
	}
	_, err := fmt.Fprintln(w, record.String())
	return err
}

func render(w io.Writer, value core.Renderable) error {
	out := value.PrettyTable()
	if flagOutput == "json" {
		out = value.PrettyJson("  ")
	}
	_, err := fmt.Fprintln(w, out)
	return err
}
