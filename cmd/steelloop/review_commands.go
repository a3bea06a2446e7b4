package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"steelloop/internal/app"
	"steelloop/internal/domain"
	"steelloop/internal/usecase"
)

func newSparksCommand(ctx *commandContext) *cobra.Command {
	sparksCmd := &cobra.Command{
		Use:   "sparks",
		Short: "Review generated hooks",
	}

	decide := func(use, short string, fn func(*usecase.Loop, *cobra.Command, string, string) (domain.Spark, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <spark-id>...",
			Short: short,
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.withUser(cmd, func(a *app.Application, userID string) error {
					sparks := make([]domain.Spark, 0, len(args))
					for _, id := range args {
						spark, err := fn(a.Loop(), cmd, userID, id)
						if err != nil {
							return err
						}
						sparks = append(sparks, spark)
					}
					return ctx.emit(cmd, sparks, func() string {
						lines := make([]string, 0, len(sparks))
						for _, s := range sparks {
							lines = append(lines, fmt.Sprintf("Spark %s is %s", s.ID, s.Status))
						}
						return strings.Join(lines, "\n")
					})
				})
			},
		}
	}

	sparksCmd.AddCommand(decide("approve", "Approve sparks and start draft expansion",
		func(l *usecase.Loop, cmd *cobra.Command, userID, id string) (domain.Spark, error) {
			return l.ApproveSpark(cmd.Context(), userID, id)
		}))
	sparksCmd.AddCommand(decide("reject", "Reject sparks",
		func(l *usecase.Loop, cmd *cobra.Command, userID, id string) (domain.Spark, error) {
			return l.RejectSpark(cmd.Context(), userID, id)
		}))

	return sparksCmd
}

func newDraftsCommand(ctx *commandContext) *cobra.Command {
	draftsCmd := &cobra.Command{
		Use:   "drafts",
		Short: "Review and publish post drafts",
	}

	draftsCmd.AddCommand(&cobra.Command{
		Use:   "show <spark-id>",
		Short: "Show the drafts expanded from a spark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withUser(cmd, func(a *app.Application, userID string) error {
				drafts, err := a.Loop().SparkDrafts(cmd.Context(), userID, args[0])
				if err != nil {
					return err
				}
				return ctx.emit(cmd, drafts, func() string {
					if len(drafts) == 0 {
						return "No drafts yet"
					}
					rows := make([][]string, 0, len(drafts))
					for _, d := range drafts {
						rows = append(rows, []string{
							d.Draft.ID,
							string(d.Draft.LengthType),
							string(d.Draft.Status),
							formatScore(d.Draft.Score),
							fmt.Sprint(len(d.Slides)),
							truncate(d.Draft.Content, 60),
						})
					}
					return renderTable(
						[]string{"ID", "Length", "Status", "Score", "Slides", "Content"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
					)
				})
			})
		},
	})

	draftsCmd.AddCommand(&cobra.Command{
		Use:   "approve <draft-id>",
		Short: "Approve a draft for publishing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withUser(cmd, func(a *app.Application, userID string) error {
				draft, err := a.Loop().ApproveDraft(cmd.Context(), userID, args[0])
				if err != nil {
					return err
				}
				return ctx.emit(cmd, draft, func() string {
					return fmt.Sprintf("Draft %s is %s", draft.ID, draft.Status)
				})
			})
		},
	})

	var provider string
	publishCmd := &cobra.Command{
		Use:   "publish <draft-id>",
		Short: "Publish an approved draft to the linked social account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withUser(cmd, func(a *app.Application, userID string) error {
				draft, err := a.Loop().PublishDraft(cmd.Context(), userID, args[0], provider)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, draft, func() string {
					return fmt.Sprintf("Published draft %s as %s", draft.ID, draft.ExternalPostID)
				})
			})
		},
	}
	publishCmd.Flags().StringVar(&provider, "provider", domain.SocialProviderTelegram, "Social provider")
	draftsCmd.AddCommand(publishCmd)

	return draftsCmd
}
