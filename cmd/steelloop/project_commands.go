package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"steelloop/internal/app"
	"steelloop/internal/domain"
)

func newProjectCommand(ctx *commandContext) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects and their source documents",
	}

	projectCmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withUser(cmd, func(a *app.Application, userID string) error {
				project, err := a.Loop().CreateProject(cmd.Context(), userID, args[0])
				if err != nil {
					return err
				}
				return ctx.emit(cmd, project, func() string {
					return fmt.Sprintf("Created project %s (%s)", project.Name, project.ID)
				})
			})
		},
	})

	var provider string
	linkCmd := &cobra.Command{
		Use:   "link <project-id> <folder-id>",
		Short: "Link a cloud folder as the project's source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withUser(cmd, func(a *app.Application, userID string) error {
				project, err := a.Loop().LinkFolder(cmd.Context(), userID, args[0], domain.Provider(provider), args[1])
				if err != nil {
					return err
				}
				return ctx.emit(cmd, project, func() string {
					return fmt.Sprintf("Linked %s folder %s to project %s", project.SourceProvider, project.SourceFolderID, project.ID)
				})
			})
		},
	}
	linkCmd.Flags().StringVar(&provider, "provider", string(domain.ProviderGoogleDrive), "Storage provider (google_drive or onedrive)")
	projectCmd.AddCommand(linkCmd)

	projectCmd.AddCommand(&cobra.Command{
		Use:   "upload <project-id> <file>...",
		Short: "Upload local documents into a project",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withUser(cmd, func(a *app.Application, userID string) error {
				files := make([]domain.ProjectFile, 0, len(args)-1)
				for _, path := range args[1:] {
					file, err := uploadFile(cmd, a, userID, args[0], path)
					if err != nil {
						return err
					}
					files = append(files, file)
				}
				return ctx.emit(cmd, files, func() string {
					rows := make([][]string, 0, len(files))
					for _, f := range files {
						chars := 0
						if f.ExtractedText != nil {
							chars = len([]rune(*f.ExtractedText))
						}
						rows = append(rows, []string{f.ID, f.FileName, string(f.FileType), fmt.Sprint(chars)})
					}
					return renderTable([]string{"ID", "File", "Type", "Chars"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight})
				})
			})
		},
	})

	projectCmd.AddCommand(&cobra.Command{
		Use:   "ingest <project-id>",
		Short: "Start a pipeline run over the project's documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withUser(cmd, func(a *app.Application, userID string) error {
				item, err := a.Loop().TriggerIngestion(cmd.Context(), userID, args[0])
				if err != nil {
					return err
				}
				return ctx.emit(cmd, item, func() string {
					return fmt.Sprintf("Pipeline item %s is %s", item.ID, item.Status)
				})
			})
		},
	})

	projectCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withUser(cmd, func(a *app.Application, userID string) error {
				projects, err := a.Loop().ListProjects(cmd.Context(), userID)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, projects, func() string {
					if len(projects) == 0 {
						return "No projects"
					}
					rows := make([][]string, 0, len(projects))
					for _, p := range projects {
						source := "-"
						if p.HasSourceFolder() {
							source = fmt.Sprintf("%s:%s", p.SourceProvider, p.SourceFolderID)
						}
						rows = append(rows, []string{p.ID, p.Name, string(p.Status), source, formatTime(p.UpdatedAt)})
					}
					return renderTable([]string{"ID", "Name", "Status", "Source", "Updated"}, rows, nil)
				})
			})
		},
	})

	return projectCmd
}

func uploadFile(cmd *cobra.Command, a *app.Application, userID, projectID, path string) (domain.ProjectFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.ProjectFile{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return a.Loop().UploadFile(cmd.Context(), userID, projectID, filepath.Base(path), f)
}
