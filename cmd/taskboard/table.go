package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"taskboard-go/internal/client"
)

// printList writes resource r as an aligned table.
func printList(ctx context.Context, w io.Writer, api *client.APIClient, r client.Resource) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	switch r {
	case client.Projects:
		items, err := api.ListProjects(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tSTART\tDEADLINE")
		for _, p := range items {
			_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Status, p.StartDate, p.DeadLine)
		}
	case client.Stories:
		items, err := api.ListStories(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPOINTS\tPROJECT")
		for _, s := range items {
			_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n", s.ID, s.Title, s.Status, s.StoryPoint, s.ProjectID)
		}
	case client.Tasks:
		items, err := api.ListTasks(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tESTIMATE\tWORKED\tSTORY")
		for _, t := range items {
			_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%g\t%g\t%d\n", t.ID, t.Title, t.Status, t.EstimationHours, t.WorkingHours, t.StoryID)
		}
	case client.Users:
		items, err := api.ListUsers(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(tw, "ID\tNAME\tEMAIL")
		for _, u := range items {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", u.ID, u.Name, u.Email)
		}
	default:
		return fmt.Errorf("%w: %s", client.ErrUnknownResource, r)
	}

	return tw.Flush()
}
