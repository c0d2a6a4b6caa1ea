package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/ChapterWatch/internal/adapter"
)

// sitesCmd creates the "sites" subcommand listing the supported sites.
func sitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List supported sites and their defaults",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			t := newTable()
			t.AppendHeader(table.Row{"Site", "Layout", "Default selectors", "Required", "Delimiter", "Wait", "On error"})
			for _, s := range adapter.KnownSites() {
				p, _ := adapter.ProfileFor(s)
				t.AppendRow(table.Row{
					s,
					p.Description,
					selectorSummary(p.Selectors),
					len(p.Required),
					p.ChapterDelimiter,
					p.WaitTimeout,
					p.OnError,
				})
			}
			t.Render()
		},
	}
}
