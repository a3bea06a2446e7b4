package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"steelloop/internal/codec"
	"steelloop/internal/domain"
	"steelloop/internal/lifecycle"
	"steelloop/internal/orchestrator"
	"steelloop/internal/vaultaudit"
)

// ErrInvalidInput is returned for user input rejected before any write.
var ErrInvalidInput = errors.New("invalid input")

// CreateProject registers a project in the linking state.
func (l *Loop) CreateProject(ctx context.Context, ownerID, name string) (domain.Project, error) {
	name = strings.TrimSpace(name)
	if ownerID == "" || name == "" {
		return domain.Project{}, fmt.Errorf("%w: owner and name are required", ErrInvalidInput)
	}
	project := domain.Project{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Name:    name,
		Status:  domain.ProjectLinking,
	}
	if err := l.projects.CreateProject(ctx, project); err != nil {
		return domain.Project{}, fmt.Errorf("create project: %w", err)
	}
	l.logger.Info("project created", "project_id", project.ID, "owner_id", ownerID)
	return l.projects.GetProject(ctx, project.ID)
}

// LinkFolder attaches a cloud folder as the project's document source.
func (l *Loop) LinkFolder(ctx context.Context, ownerID, projectID string, provider domain.Provider, folderID string) (domain.Project, error) {
	if folderID == "" {
		return domain.Project{}, fmt.Errorf("%w: folder id is required", ErrInvalidInput)
	}
	switch provider {
	case domain.ProviderGoogleDrive, domain.ProviderOneDrive:
	default:
		return domain.Project{}, fmt.Errorf("%w: unsupported provider %q", ErrInvalidInput, provider)
	}
	if _, err := l.ownedProject(ctx, ownerID, projectID); err != nil {
		return domain.Project{}, err
	}
	if err := l.projects.LinkSourceFolder(ctx, projectID, provider, folderID); err != nil {
		return domain.Project{}, fmt.Errorf("link folder: %w", err)
	}
	return l.projects.GetProject(ctx, projectID)
}

// ConnectDrive stores a user's cloud-drive credentials.
func (l *Loop) ConnectDrive(ctx context.Context, conn domain.CloudConnection) error {
	if conn.UserID == "" || conn.Provider == "" || conn.RefreshToken == "" {
		return fmt.Errorf("%w: user, provider and refresh token are required", ErrInvalidInput)
	}
	return l.accounts.SaveConnection(ctx, conn)
}

// LinkSocialAccount stores the account drafts are published to.
func (l *Loop) LinkSocialAccount(ctx context.Context, account domain.SocialAccount) error {
	if account.UserID == "" || account.Provider == "" || account.ExternalAccountID == "" {
		return fmt.Errorf("%w: user, provider and account id are required", ErrInvalidInput)
	}
	return l.accounts.SaveSocialAccount(ctx, account)
}

// UploadFile adds a local document to a project, extracting its text now.
// A file without a codec is stored without text.
func (l *Loop) UploadFile(ctx context.Context, ownerID, projectID, fileName string, body io.Reader) (domain.ProjectFile, error) {
	fileType, ok := codec.Detect(fileName, "")
	if !ok {
		return domain.ProjectFile{}, fmt.Errorf("%w: cannot tell the type of %s", ErrInvalidInput, fileName)
	}
	if _, err := l.ownedProject(ctx, ownerID, projectID); err != nil {
		return domain.ProjectFile{}, err
	}

	var text *string
	if fileType != domain.FileTypeImage {
		extracted, err := l.extractor.ExtractText(ctx, body, fileType)
		switch {
		case errors.Is(err, codec.ErrUnsupported):
			l.logger.Warn("no codec for uploaded file", "file", fileName, "file_type", string(fileType))
		case err != nil:
			return domain.ProjectFile{}, fmt.Errorf("extract %s: %w", fileName, err)
		default:
			text = &extracted
		}
	}

	file, err := l.files.UpsertFile(ctx, domain.ProjectFile{
		ProjectID:   projectID,
		FileName:    fileName,
		FileType:    fileType,
		CloudFileID: "upload:" + fileName,
		Provider:    domain.ProviderUpload,
	})
	if err != nil {
		return domain.ProjectFile{}, fmt.Errorf("save upload: %w", err)
	}
	if text != nil {
		if err := l.files.SetExtractedText(ctx, file.ID, *text); err != nil {
			return domain.ProjectFile{}, fmt.Errorf("save upload text: %w", err)
		}
		file.ExtractedText = text
	}
	return file, nil
}

// TriggerIngestion starts a new pipeline run for the project. The item and
// project are written before the ingest-files event is sent.
func (l *Loop) TriggerIngestion(ctx context.Context, ownerID, projectID string) (domain.PipelineItem, error) {
	project, err := l.ownedProject(ctx, ownerID, projectID)
	if err != nil {
		return domain.PipelineItem{}, err
	}
	files, err := l.files.ListFiles(ctx, projectID)
	if err != nil {
		return domain.PipelineItem{}, fmt.Errorf("list files: %w", err)
	}
	if err := lifecycle.CanTriggerIngestion(lifecycle.IngestContext{Project: project, FileCount: len(files)}).Error(); err != nil {
		return domain.PipelineItem{}, err
	}

	item := domain.PipelineItem{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		ProjectID: projectID,
		Status:    domain.ItemNew,
	}
	if err := l.items.CreateItem(ctx, item); err != nil {
		return domain.PipelineItem{}, fmt.Errorf("create pipeline item: %w", err)
	}
	if err := l.projects.TransitionProject(ctx, projectID, domain.ProjectProcessing); err != nil {
		return domain.PipelineItem{}, err
	}
	if err := l.items.TransitionItem(ctx, item.ID, domain.ItemScouting); err != nil {
		return domain.PipelineItem{}, err
	}
	if _, err := l.events.Send(ctx, EventIngestFiles, IngestFilesPayload{
		ProjectID:      projectID,
		PipelineItemID: item.ID,
		UserID:         ownerID,
	}); err != nil {
		return domain.PipelineItem{}, fmt.Errorf("send %s: %w", EventIngestFiles, err)
	}
	l.logger.Info("ingestion triggered", "project_id", projectID, "pipeline_item_id", item.ID, "files", len(files))
	return l.items.GetItem(ctx, item.ID)
}

// ApproveSpark approves a pending spark, moves its item into drafting on the
// first approval and requests Draft Expansion. The request is keyed by spark,
// so approving an already approved spark does not queue a second expansion.
func (l *Loop) ApproveSpark(ctx context.Context, ownerID, sparkID string) (domain.Spark, error) {
	spark, item, err := l.ownedSpark(ctx, ownerID, sparkID)
	if err != nil {
		return domain.Spark{}, err
	}
	if spark.Status != domain.SparkApproved {
		if err := lifecycle.CanSpark(spark.Status, domain.SparkApproved).Error(); err != nil {
			return domain.Spark{}, err
		}
		if err := l.sparks.TransitionSpark(ctx, sparkID, domain.SparkApproved); err != nil {
			return domain.Spark{}, err
		}
	}
	if next, changed := lifecycle.ItemAfterSparkApproval(item.Status); changed {
		if err := l.items.TransitionItem(ctx, item.ID, next); err != nil {
			return domain.Spark{}, err
		}
	}
	eventID := orchestrator.KeyedEventID(EventDraftExpansion, sparkID)
	if _, err := l.events.SendWithID(ctx, eventID, EventDraftExpansion, DraftExpansionPayload{
		SparkID:        sparkID,
		PipelineItemID: item.ID,
		UserID:         ownerID,
	}); err != nil {
		return domain.Spark{}, fmt.Errorf("send %s: %w", EventDraftExpansion, err)
	}
	return l.sparks.GetSpark(ctx, sparkID)
}

// RejectSpark rejects a pending spark. The item status is unchanged unless
// the rejection leaves every remaining spark drafted.
func (l *Loop) RejectSpark(ctx context.Context, ownerID, sparkID string) (domain.Spark, error) {
	spark, item, err := l.ownedSpark(ctx, ownerID, sparkID)
	if err != nil {
		return domain.Spark{}, err
	}
	if err := lifecycle.CanSpark(spark.Status, domain.SparkRejected).Error(); err != nil {
		return domain.Spark{}, err
	}
	if err := l.sparks.TransitionSpark(ctx, sparkID, domain.SparkRejected); err != nil {
		return domain.Spark{}, err
	}
	if _, err := l.promoteIfDrafted(ctx, item.ID); err != nil {
		return domain.Spark{}, err
	}
	return l.sparks.GetSpark(ctx, sparkID)
}

// ApproveDraft approves a draft for publishing and requests its carousel when
// it has slides.
func (l *Loop) ApproveDraft(ctx context.Context, ownerID, draftID string) (domain.PostDraft, error) {
	draft, err := l.ownedDraft(ctx, ownerID, draftID)
	if err != nil {
		return domain.PostDraft{}, err
	}
	if err := lifecycle.CanDraft(draft.Status, domain.DraftApproved).Error(); err != nil {
		return domain.PostDraft{}, err
	}
	if err := l.drafts.TransitionDraft(ctx, draftID, domain.DraftApproved); err != nil {
		return domain.PostDraft{}, err
	}

	slides, err := l.drafts.ListSlides(ctx, draftID)
	if err != nil {
		return domain.PostDraft{}, fmt.Errorf("list slides: %w", err)
	}
	if len(slides) > 0 {
		if _, err := l.events.Send(ctx, EventBuildCarousel, BuildCarouselPayload{PostDraftID: draftID}); err != nil {
			return domain.PostDraft{}, fmt.Errorf("send %s: %w", EventBuildCarousel, err)
		}
	}
	return l.drafts.GetDraft(ctx, draftID)
}

// PublishDraft posts an approved draft to the user's social account. A
// publish failure is returned to the caller and changes nothing.
func (l *Loop) PublishDraft(ctx context.Context, ownerID, draftID, provider string) (domain.PostDraft, error) {
	draft, err := l.ownedDraft(ctx, ownerID, draftID)
	if err != nil {
		return domain.PostDraft{}, err
	}
	if err := lifecycle.CanPublishDraft(draft).Error(); err != nil {
		return domain.PostDraft{}, err
	}
	if provider == "" {
		provider = domain.SocialProviderTelegram
	}
	account, err := l.accounts.GetSocialAccount(ctx, ownerID, provider)
	if err != nil {
		return domain.PostDraft{}, fmt.Errorf("load %s account: %w", provider, err)
	}
	if l.publisher == nil {
		return domain.PostDraft{}, errors.New("no publisher configured")
	}

	externalID, err := l.publisher.Publish(ctx, account, draft.Content)
	if err != nil {
		return domain.PostDraft{}, fmt.Errorf("publish draft %s: %w", draftID, err)
	}
	if err := l.drafts.MarkPublished(ctx, draftID, externalID, l.now().UTC()); err != nil {
		return domain.PostDraft{}, err
	}

	spark, err := l.sparks.GetSpark(ctx, draft.SparkID)
	if err != nil {
		return domain.PostDraft{}, err
	}
	item, err := l.items.GetItem(ctx, spark.PipelineItemID)
	if err != nil {
		return domain.PostDraft{}, err
	}
	if lifecycle.CanItem(item.Status, domain.ItemPublished).Allowed {
		if err := l.items.TransitionItem(ctx, item.ID, domain.ItemPublished); err != nil {
			return domain.PostDraft{}, err
		}
	}
	l.logger.Info("draft published", "post_draft_id", draftID, "external_post_id", externalID)
	return l.drafts.GetDraft(ctx, draftID)
}

// SaveVault parses a vault document (JSON, JSONC or YAML), audits it and
// stores it with the audit status. The vault is stored even when the audit
// fails; the status tells readers it is not production-ready.
func (l *Loop) SaveVault(ctx context.Context, userID, fileName string, data []byte) (domain.IdentityVault, vaultaudit.Result, error) {
	if userID == "" {
		return domain.IdentityVault{}, vaultaudit.Result{}, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	raw, err := vaultaudit.ParseDocument(fileName, data)
	if err != nil {
		return domain.IdentityVault{}, vaultaudit.Result{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	result := vaultaudit.Audit(raw)
	vault, err := l.vaults.SaveVault(ctx, userID, raw, result.Status)
	if err != nil {
		return domain.IdentityVault{}, result, err
	}
	l.logger.Info("vault saved", "user_id", userID, "version", vault.Version, "audit_status", string(result.Status))
	return vault, result, nil
}

// RegenerateSparks re-runs Hook Generation for an item left without sparks.
func (l *Loop) RegenerateSparks(ctx context.Context, ownerID, itemID string) error {
	item, err := l.ownedItem(ctx, ownerID, itemID)
	if err != nil {
		return err
	}
	if item.Status != domain.ItemSparksGenerated {
		return fmt.Errorf("%w: pipeline item %s is %s, regeneration needs %s",
			lifecycle.ErrIllegalTransition, itemID, item.Status, domain.ItemSparksGenerated)
	}
	sparks, err := l.sparks.ListSparks(ctx, itemID)
	if err != nil {
		return err
	}
	if len(sparks) > 0 {
		return fmt.Errorf("%w: pipeline item %s already has %d sparks", lifecycle.ErrIllegalTransition, itemID, len(sparks))
	}
	if _, err := l.events.Send(ctx, EventHookGeneration, HookGenerationPayload{PipelineItemID: itemID, UserID: ownerID}); err != nil {
		return fmt.Errorf("send %s: %w", EventHookGeneration, err)
	}
	return nil
}
