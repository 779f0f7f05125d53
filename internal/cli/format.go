// Package cli contains rendering utilities for CLI inspection commands.
package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/andrei-cloud/plughub/internal/plugins"
)

// WriteEntriesTable renders one row per plugin with its lifecycle outcome.
func WriteEntriesTable(w io.Writer, entries []plugins.RegistryEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "Name\tVersion\tState\tCommands\tDetail")
	fmt.Fprintln(tw, "----\t-------\t-----\t--------\t------")

	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Metadata.Name,
			e.Metadata.Version,
			e.State,
			FormatCommands(e.CommandIDs),
			e.ErrorDetail)
	}

	return tw.Flush()
}

// WriteEntryDetail renders the full registry record of one plugin.
func WriteEntryDetail(w io.Writer, e plugins.RegistryEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Name:\t%s\n", e.Metadata.Name)
	fmt.Fprintf(tw, "Version:\t%s\n", e.Metadata.Version)

	if e.Metadata.Summary != "" {
		fmt.Fprintf(tw, "Summary:\t%s\n", e.Metadata.Summary)
	}

	fmt.Fprintf(tw, "State:\t%s\n", e.State)

	if e.ErrorDetail != "" {
		fmt.Fprintf(tw, "Detail:\t%s\n", e.ErrorDetail)
	}

	fmt.Fprintf(tw, "Path:\t%s\n", e.Path)

	if !e.ModTime.IsZero() {
		fmt.Fprintf(tw, "Modified:\t%s\n", e.ModTime.Format(time.RFC3339))
	}

	fmt.Fprintf(tw, "Commands:\t%s\n", FormatCommands(e.CommandIDs))

	if len(e.Metadata.DependsOn) > 0 {
		fmt.Fprintf(tw, "Depends on:\t%s\n", strings.Join(e.Metadata.DependsOn, ", "))
	}

	if e.Metadata.MinHostVersion != "" {
		fmt.Fprintf(tw, "Min host:\t%s\n", e.Metadata.MinHostVersion)
	}

	if e.Metadata.MaxHostVersion != "" {
		fmt.Fprintf(tw, "Max host:\t%s\n", e.Metadata.MaxHostVersion)
	}

	if len(e.Metadata.Features) > 0 {
		fmt.Fprintf(tw, "Features:\t%s\n", strings.Join(e.Metadata.Features, ", "))
	}

	if len(e.Metadata.Tags) > 0 {
		fmt.Fprintf(tw, "Tags:\t%s\n", strings.Join(e.Metadata.Tags, ", "))
	}

	fmt.Fprintf(tw, "Generation:\t%d\n", e.Generation)

	return tw.Flush()
}

// FormatCommands joins command identifiers for table cells; "-" when none.
func FormatCommands(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}

	return strings.Join(ids, ", ")
}
