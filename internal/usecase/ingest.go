package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"steelloop/internal/codec"
	"steelloop/internal/domain"
	"steelloop/internal/lifecycle"
	"steelloop/internal/orchestrator"
	"steelloop/internal/stages"
)

// ingestFiles discovers and extracts the project's documents, runs Forensic
// Extraction and hands the item to Hook Generation.
func (l *Loop) ingestFiles(ctx context.Context, run *orchestrator.Run, event orchestrator.Event) error {
	var p IngestFilesPayload
	if err := event.Decode(&p); err != nil {
		return err
	}
	if p.ProjectID == "" || p.PipelineItemID == "" {
		return orchestrator.Preconditionf("ingest-files payload is missing ids")
	}
	logger := run.Logger().With("project_id", p.ProjectID, "pipeline_item_id", p.PipelineItemID)

	discovered, err := orchestrator.Step(ctx, run, "discover-files", func(ctx context.Context) (int, error) {
		return l.discoverFiles(ctx, p, logger)
	})
	if err != nil {
		return err
	}
	extracted, err := orchestrator.Step(ctx, run, "extract-text", func(ctx context.Context) (int, error) {
		return l.extractText(ctx, p, logger)
	})
	if err != nil {
		return err
	}
	brief, err := orchestrator.Step(ctx, run, "forensic-extraction", func(ctx context.Context) (string, error) {
		return l.forensicBrief(ctx, p)
	})
	if err != nil {
		return err
	}
	if _, err := orchestrator.Step(ctx, run, "save-brief", func(ctx context.Context) (bool, error) {
		return l.saveBrief(ctx, p, brief)
	}); err != nil {
		return err
	}

	logger.Info("ingestion finished", "discovered", discovered, "extracted", extracted, "brief_chars", len(brief))
	return run.SendEvent(ctx, "emit-hook-generation", EventHookGeneration, HookGenerationPayload{
		PipelineItemID: p.PipelineItemID,
		UserID:         p.UserID,
	})
}

// discoverFiles upserts every recognised file of the linked folder. Replays
// hit the natural key and create no duplicates.
func (l *Loop) discoverFiles(ctx context.Context, p IngestFilesPayload, logger *slog.Logger) (int, error) {
	project, err := l.projects.GetProject(ctx, p.ProjectID)
	if err != nil {
		return 0, preconditionIfMissing(err)
	}
	if project.OwnerID != p.UserID {
		return 0, orchestrator.Preconditionf("project %s is not owned by %s", project.ID, p.UserID)
	}
	if !project.HasSourceFolder() || project.SourceProvider == domain.ProviderUpload {
		logger.Debug("no cloud folder linked, skipping discovery")
		return 0, nil
	}
	if l.drive == nil {
		return 0, orchestrator.Preconditionf("no cloud drive configured for %s", project.SourceProvider)
	}

	conn, err := l.connection(ctx, p.UserID, project.SourceProvider)
	if err != nil {
		return 0, err
	}
	remote, err := l.drive.ListFolder(ctx, conn, project.SourceFolderID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, rf := range remote {
		fileType, ok := codec.Detect(rf.Name, rf.MimeType)
		if !ok {
			logger.Debug("skipping unrecognised file", "file", rf.Name, "mime_type", rf.MimeType)
			continue
		}
		if _, err := l.files.UpsertFile(ctx, domain.ProjectFile{
			ProjectID:   project.ID,
			FileName:    rf.Name,
			FileType:    fileType,
			CloudFileID: rf.ID,
			Provider:    project.SourceProvider,
		}); err != nil {
			return count, fmt.Errorf("upsert %s: %w", rf.Name, err)
		}
		count++
	}
	return count, nil
}

// extractText fills extracted text for files that have none. Files without a
// codec, or whose download is refused, are skipped with a warning.
func (l *Loop) extractText(ctx context.Context, p IngestFilesPayload, logger *slog.Logger) (int, error) {
	files, err := l.files.ListFiles(ctx, p.ProjectID)
	if err != nil {
		return 0, err
	}

	conns := map[domain.Provider]domain.CloudConnection{}
	extracted := 0
	for _, f := range files {
		if f.ExtractedText != nil || f.FileType == domain.FileTypeImage {
			continue
		}
		if f.Provider == domain.ProviderUpload || l.drive == nil {
			logger.Warn("file has no extracted text and cannot be downloaded", "file", f.FileName)
			continue
		}
		conn, ok := conns[f.Provider]
		if !ok {
			if conn, err = l.connection(ctx, p.UserID, f.Provider); err != nil {
				return extracted, err
			}
			conns[f.Provider] = conn
		}

		text, err := l.downloadText(ctx, conn, f)
		switch {
		case errors.Is(err, codec.ErrUnsupported):
			logger.Warn("no codec for file type, skipping", "file", f.FileName, "file_type", string(f.FileType))
			continue
		case err != nil && orchestrator.IsPermanent(err):
			logger.Warn("file download refused, skipping", "file", f.FileName, "error", err)
			continue
		case err != nil:
			return extracted, err
		}
		if err := l.files.SetExtractedText(ctx, f.ID, text); err != nil {
			return extracted, err
		}
		extracted++
	}
	return extracted, nil
}

func (l *Loop) downloadText(ctx context.Context, conn domain.CloudConnection, f domain.ProjectFile) (string, error) {
	body, err := l.drive.Download(ctx, conn, f.CloudFileID)
	if err != nil {
		return "", err
	}
	defer body.Close()
	return l.extractor.ExtractText(ctx, body, f.FileType)
}

// connection reads the user's cloud credentials and refreshes them when they
// expire within the buffer. Concurrent refreshes overwrite each other.
func (l *Loop) connection(ctx context.Context, userID string, provider domain.Provider) (domain.CloudConnection, error) {
	conn, err := l.accounts.GetConnection(ctx, userID, provider)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.CloudConnection{}, orchestrator.Preconditionf("user %s has no %s connection", userID, provider)
	}
	if err != nil {
		return domain.CloudConnection{}, fmt.Errorf("load connection: %w", err)
	}
	if !conn.ExpiresWithin(l.now(), l.refreshBuffer) {
		return conn, nil
	}
	refreshed, err := l.drive.RefreshToken(ctx, conn)
	if err != nil {
		return domain.CloudConnection{}, fmt.Errorf("refresh %s token: %w", provider, err)
	}
	if err := l.accounts.SaveConnection(ctx, refreshed); err != nil {
		return domain.CloudConnection{}, fmt.Errorf("save refreshed connection: %w", err)
	}
	return refreshed, nil
}

// forensicBrief returns the stored brief or generates one from the files.
func (l *Loop) forensicBrief(ctx context.Context, p IngestFilesPayload) (string, error) {
	item, err := l.items.GetItem(ctx, p.PipelineItemID)
	if err != nil {
		return "", preconditionIfMissing(err)
	}
	if item.ForensicBrief != nil {
		return *item.ForensicBrief, nil
	}
	project, err := l.projects.GetProject(ctx, p.ProjectID)
	if err != nil {
		return "", preconditionIfMissing(err)
	}
	vault, err := l.loadVault(ctx, p.UserID)
	if err != nil {
		return "", err
	}
	files, err := l.files.ListFiles(ctx, p.ProjectID)
	if err != nil {
		return "", err
	}

	docs := make([]stages.SourceDocument, 0, len(files))
	for _, f := range files {
		if f.ExtractedText != nil {
			docs = append(docs, stages.SourceDocument{FileName: f.FileName, Text: *f.ExtractedText})
		}
	}
	return l.stages.Forensic(ctx, stages.ForensicInput{
		Vault:       stages.VaultContext(vault),
		ProjectName: project.Name,
		Documents:   docs,
	})
}

// saveBrief commits the brief once and advances the item and project.
func (l *Loop) saveBrief(ctx context.Context, p IngestFilesPayload, brief string) (bool, error) {
	written, err := l.items.SetForensicBrief(ctx, p.PipelineItemID, brief)
	if err != nil {
		return false, err
	}
	if err := l.items.TransitionItem(ctx, p.PipelineItemID, domain.ItemSparksGenerated); err != nil {
		return false, permanentIfIllegal(err)
	}
	if err := l.projects.TransitionProject(ctx, p.ProjectID, domain.ProjectReady); err != nil {
		return false, permanentIfIllegal(err)
	}
	return written, nil
}

// failIngestion marks the item as errored and releases the project so a new
// ingestion can be triggered.
func (l *Loop) failIngestion(ctx context.Context, event orchestrator.Event, cause error) error {
	if err := l.failItem(ctx, event, cause); err != nil {
		return err
	}
	var p IngestFilesPayload
	if err := event.Decode(&p); err != nil || p.ProjectID == "" {
		return nil
	}
	project, err := l.projects.GetProject(ctx, p.ProjectID)
	if err != nil {
		return nil
	}
	if !lifecycle.CanProject(project.Status, domain.ProjectReady).Allowed {
		return nil
	}
	return l.projects.TransitionProject(ctx, p.ProjectID, domain.ProjectReady)
}

// failItem moves the event's pipeline item to error when that is legal.
func (l *Loop) failItem(ctx context.Context, event orchestrator.Event, cause error) error {
	var ref itemRef
	if err := event.Decode(&ref); err != nil || ref.PipelineItemID == "" {
		return nil
	}
	item, err := l.items.GetItem(ctx, ref.PipelineItemID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !lifecycle.CanItem(item.Status, domain.ItemError).Allowed {
		return nil
	}
	if err := l.items.TransitionItem(ctx, item.ID, domain.ItemError); err != nil {
		return fmt.Errorf("mark item error: %w", err)
	}
	l.logger.Warn("pipeline item moved to error", "pipeline_item_id", item.ID, "from", string(item.Status), "event", event.Name, "cause", cause)
	return nil
}

func preconditionIfMissing(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return orchestrator.Permanent(fmt.Errorf("%w: %w", orchestrator.ErrPrecondition, err))
	}
	return err
}

func permanentIfIllegal(err error) error {
	if errors.Is(err, lifecycle.ErrIllegalTransition) {
		return orchestrator.Permanent(err)
	}
	return err
}
