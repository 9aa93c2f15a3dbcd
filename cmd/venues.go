package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"

	"bookkar-cli/model"
)

var venuesCmd = &cobra.Command{
	Use:   "venues",
	Short: "List the venue catalog",
	Long:  `Print every venue with its capacity, price and available time slots.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(configPath)
		if err != nil {
			return err
		}
		defer app.close()

		owner, _ := cmd.Flags().GetString("owner")
		var venues []model.Venue
		if owner != "" {
			venues, err = app.client.GetOwnerVenues(context.Background(), owner)
		} else {
			venues, err = app.client.GetVenues(context.Background())
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		renderVenues(out, venues)
		if summary := facilitySummary(venues); summary != "" {
			fmt.Fprintln(out, summary)
		}
		return nil
	},
}

func init() {
	venuesCmd.Flags().String("owner", "", "only list venues of this owner id")
}

func renderVenues(out io.Writer, venues []model.Venue) {
	rowConfigAutoMerge := table.RowConfig{AutoMerge: true}
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Venue", "Location", "Type", "Capacity", "Price", "Slots"}, rowConfigAutoMerge)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMax: 24},
		{Number: 2, AutoMerge: true, WidthMax: 20},
		{Number: 3, AutoMerge: true},
	})
	t.Style().Options.SeparateRows = true

	for _, venue := range venues {
		t.AppendRow(table.Row{
			venue.Name,
			venue.Location,
			venue.VenueType,
			venue.Capacity,
			venue.Price,
			slotRange(venue.TimeSlots),
		}, rowConfigAutoMerge)
	}
	t.AppendFooter(table.Row{"", "", "", "", "Total", len(venues)})
	t.Render()
}

func slotRange(slots []model.TimeSlot) string {
	if len(slots) == 0 {
		return "none"
	}
	first, last := slots[0], slots[0]
	for _, slot := range slots[1:] {
		if slot.Start.Before(first.Start) {
			first = slot
		}
		if slot.Start.After(last.Start) {
			last = slot
		}
	}
	if first.Date() == last.Date() {
		return fmt.Sprintf("%d on %s", len(slots), first.Date())
	}
	return fmt.Sprintf("%d, %s to %s", len(slots), first.Date(), last.Date())
}

// facilitySummary counts venues per facility, most common first.
func facilitySummary(venues []model.Venue) string {
	counts := make(map[string]int)
	for _, venue := range venues {
		for _, facility := range venue.Facilities {
			counts[facility]++
		}
	}
	if len(counts) == 0 {
		return ""
	}
	names := maps.Keys(counts)
	slices.SortFunc(names, func(a, b string) int {
		if counts[a] != counts[b] {
			return counts[b] - counts[a]
		}
		return strings.Compare(a, b)
	})
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s (%d)", name, counts[name]))
	}
	return "Facilities: " + strings.Join(parts, ", ")
}
