package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"steelloop/internal/app"
	"steelloop/internal/domain"
	"steelloop/internal/qualitygate"
	"steelloop/internal/vaultaudit"
)

type vaultView struct {
	Version     int                `json:"version"`
	AuditStatus domain.AuditStatus `json:"auditStatus"`
	Audit       vaultaudit.Result  `json:"audit"`
}

func newVaultCommand(ctx *commandContext) *cobra.Command {
	vaultCmd := &cobra.Command{
		Use:   "vault",
		Short: "Manage the identity vault",
	}

	vaultCmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Audit and store a vault document (JSON, JSONC or YAML)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read vault: %w", err)
			}
			return ctx.withUser(cmd, func(a *app.Application, userID string) error {
				vault, result, err := a.Loop().SaveVault(cmd.Context(), userID, filepath.Base(args[0]), data)
				if err != nil {
					return err
				}
				view := vaultView{Version: vault.Version, AuditStatus: vault.AuditStatus, Audit: result}
				return ctx.emit(cmd, view, func() string {
					return fmt.Sprintf("Stored vault version %d\n%s", vault.Version, renderAudit(result))
				})
			})
		},
	})

	vaultCmd.AddCommand(&cobra.Command{
		Use:   "audit <file>",
		Short: "Audit a vault document without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read vault: %w", err)
			}
			raw, err := vaultaudit.ParseDocument(filepath.Base(args[0]), data)
			if err != nil {
				return err
			}
			result := vaultaudit.Audit(raw)
			if err := ctx.emit(cmd, result, func() string { return renderAudit(result) }); err != nil {
				return err
			}
			if !result.Passed {
				return fmt.Errorf("vault audit %s", result.Status)
			}
			return nil
		},
	})

	vaultCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the stored vault's version and audit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withUser(cmd, func(a *app.Application, userID string) error {
				vault, result, err := a.Loop().Vault(cmd.Context(), userID)
				if err != nil {
					return err
				}
				view := vaultView{Version: vault.Version, AuditStatus: vault.AuditStatus, Audit: result}
				return ctx.emit(cmd, view, func() string {
					return fmt.Sprintf("Vault version %d, updated %s\n%s", vault.Version, formatTime(vault.UpdatedAt), renderAudit(result))
				})
			})
		},
	})

	return vaultCmd
}

func renderAudit(result vaultaudit.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Audit: %s (%s)", result.Status, result.Summary)
	if len(result.Issues) == 0 {
		return b.String()
	}
	rows := make([][]string, 0, len(result.Issues))
	for _, issue := range result.Issues {
		rows = append(rows, []string{string(issue.Severity), issue.Field, issue.Message})
	}
	b.WriteString("\n")
	b.WriteString(renderTable([]string{"Severity", "Field", "Message"}, rows, nil))
	return b.String()
}

func newScoreCommand(ctx *commandContext) *cobra.Command {
	var length string
	scoreCmd := &cobra.Command{
		Use:   "score [file]",
		Short: "Score post content with the quality gate (reads stdin without a file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read content: %w", err)
			}
			return ctx.withUser(cmd, func(a *app.Application, userID string) error {
				result, err := a.Loop().Score(cmd.Context(), userID, string(data), domain.LengthType(length))
				if err != nil {
					return err
				}
				return ctx.emit(cmd, result, func() string { return renderScore(result) })
			})
		},
	}
	scoreCmd.Flags().StringVar(&length, "length", "", "Length class for the length check (short, medium or long)")
	return scoreCmd
}

func renderScore(result qualitygate.Result) string {
	verdict := "FAIL"
	if result.Passed {
		verdict = "PASS"
	}
	sub := result.Subscores
	rows := [][]string{
		{"Rhythm", fmt.Sprint(sub.Rhythm)},
		{"Slop", fmt.Sprint(sub.Slop)},
		{"Data bomb anchor", fmt.Sprint(sub.DataBombAnchor)},
		{"Commercial friction", fmt.Sprint(sub.CommercialFriction)},
		{"Length compliance", fmt.Sprint(sub.LengthCompliance)},
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d/100\n", verdict, result.OverallScore)
	b.WriteString(renderTable([]string{"Check", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
	for _, v := range result.Violations {
		fmt.Fprintf(&b, "\n- %s", v)
	}
	return b.String()
}
