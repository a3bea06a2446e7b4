package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"steelloop/internal/app"
	"steelloop/internal/domain"
)

func newPipelineCommand(ctx *commandContext) *cobra.Command {
	pipelineCmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Inspect pipeline items and job runs",
	}

	var (
		statuses []string
		limit    int
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List your pipeline items, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := make([]domain.ItemStatus, 0, len(statuses))
			for _, s := range statuses {
				status, ok := domain.ParseItemStatus(s)
				if !ok {
					return fmt.Errorf("unknown item status %q", s)
				}
				filter = append(filter, status)
			}
			return ctx.withUser(cmd, func(a *app.Application, userID string) error {
				items, err := a.Loop().ListItems(cmd.Context(), userID, filter, limit)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, items, func() string {
					if len(items) == 0 {
						return "No pipeline items"
					}
					rows := make([][]string, 0, len(items))
					for _, it := range items {
						brief := "no"
						if it.Brief() != "" {
							brief = "yes"
						}
						rows = append(rows, []string{it.ID, it.ProjectID, string(it.Status), brief, formatTime(it.UpdatedAt)})
					}
					return renderTable([]string{"ID", "Project", "Status", "Brief", "Updated"}, rows, nil)
				})
			})
		},
	}
	listCmd.Flags().StringSliceVar(&statuses, "status", nil, "Only show items in these statuses")
	listCmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of items")
	pipelineCmd.AddCommand(listCmd)

	pipelineCmd.AddCommand(&cobra.Command{
		Use:   "show <item-id>",
		Short: "Show a pipeline item with its sparks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withUser(cmd, func(a *app.Application, userID string) error {
				detail, err := a.Loop().Item(cmd.Context(), userID, args[0])
				if err != nil {
					return err
				}
				return ctx.emit(cmd, detail, func() string {
					var b strings.Builder
					fmt.Fprintf(&b, "Item %s (%s)\n", detail.Item.ID, detail.Item.Status)
					if brief := detail.Item.Brief(); brief != "" {
						fmt.Fprintf(&b, "Brief: %s\n", truncate(brief, 120))
					}
					if len(detail.Sparks) == 0 {
						b.WriteString("No sparks")
						return b.String()
					}
					rows := make([][]string, 0, len(detail.Sparks))
					for _, s := range detail.Sparks {
						rows = append(rows, []string{fmt.Sprint(s.SortOrder), s.ID, string(s.Status), truncate(s.Text, 80)})
					}
					b.WriteString(renderTable([]string{"#", "Spark", "Status", "Hook"}, rows, []columnAlignment{alignRight}))
					return b.String()
				})
			})
		},
	})

	pipelineCmd.AddCommand(&cobra.Command{
		Use:   "regenerate-sparks <item-id>",
		Short: "Re-run hook generation for an item left without sparks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withUser(cmd, func(a *app.Application, userID string) error {
				if err := a.Loop().RegenerateSparks(cmd.Context(), userID, args[0]); err != nil {
					return err
				}
				return ctx.emit(cmd, map[string]string{"pipelineItemId": args[0]}, func() string {
					return fmt.Sprintf("Hook generation requested for %s", args[0])
				})
			})
		},
	})

	var runLimit int
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent job runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.Application) error {
				runs, err := a.Store().ListRuns(cmd.Context(), runLimit)
				if err != nil {
					return err
				}
				pending, err := a.Store().PendingEvents(cmd.Context())
				if err != nil {
					return err
				}
				return ctx.emit(cmd, runs, func() string {
					rows := make([][]string, 0, len(runs))
					for _, r := range runs {
						rows = append(rows, []string{r.Job, r.EventID, string(r.Status), fmt.Sprint(r.Attempts), formatTime(r.UpdatedAt), truncate(r.Error, 50)})
					}
					table := renderTable(
						[]string{"Job", "Event", "Status", "Attempts", "Updated", "Error"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
					)
					return fmt.Sprintf("%s\n%d event(s) pending", table, pending)
				})
			})
		},
	}
	runsCmd.Flags().IntVar(&runLimit, "limit", 20, "Maximum number of runs")
	pipelineCmd.AddCommand(runsCmd)

	return pipelineCmd
}
