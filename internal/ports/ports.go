package ports

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"steelloop/internal/domain"
)

// Generator is the generative collaborator behind every AI stage.
type Generator interface {
	Generate(ctx context.Context, prompt, systemPrompt string, maxTokens int) (string, error)
}

// ProjectRepository persists projects.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project domain.Project) error
	GetProject(ctx context.Context, id string) (domain.Project, error)
	ListProjects(ctx context.Context, ownerID string) ([]domain.Project, error)
	LinkSourceFolder(ctx context.Context, id string, provider domain.Provider, folderID string) error
	// TransitionProject moves a project to status if its current status
	// permits it; otherwise it returns lifecycle.ErrIllegalTransition.
	TransitionProject(ctx context.Context, id string, to domain.ProjectStatus) error
}

// FileRepository persists project files keyed by (project, cloud file, provider).
type FileRepository interface {
	UpsertFile(ctx context.Context, file domain.ProjectFile) (domain.ProjectFile, error)
	ListFiles(ctx context.Context, projectID string) ([]domain.ProjectFile, error)
	SetExtractedText(ctx context.Context, fileID, text string) error
}

// ItemFilter narrows ListItems.
type ItemFilter struct {
	OwnerID  string
	Statuses []domain.ItemStatus
	Limit    int
}

// PipelineRepository persists pipeline items.
type PipelineRepository interface {
	CreateItem(ctx context.Context, item domain.PipelineItem) error
	GetItem(ctx context.Context, id string) (domain.PipelineItem, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]domain.PipelineItem, error)
	TransitionItem(ctx context.Context, id string, to domain.ItemStatus) error
	// SetForensicBrief stores the brief unless one is already set; it
	// reports whether this call wrote it.
	SetForensicBrief(ctx context.Context, id, brief string) (bool, error)
}

// SparkRepository persists sparks.
type SparkRepository interface {
	// SaveSparks stores texts with sortOrder 1..n; rows with an existing
	// (item, sortOrder) are left as they are.
	SaveSparks(ctx context.Context, itemID string, texts []string) ([]domain.Spark, error)
	GetSpark(ctx context.Context, id string) (domain.Spark, error)
	ListSparks(ctx context.Context, itemID string) ([]domain.Spark, error)
	TransitionSpark(ctx context.Context, id string, to domain.SparkStatus) error
}

// DraftRepository persists post drafts and their carousel slides.
type DraftRepository interface {
	// UpsertDraft inserts or refreshes the draft for (spark, lengthType).
	UpsertDraft(ctx context.Context, draft domain.PostDraft) (domain.PostDraft, error)
	GetDraft(ctx context.Context, id string) (domain.PostDraft, error)
	ListDrafts(ctx context.Context, sparkID string) ([]domain.PostDraft, error)
	TransitionDraft(ctx context.Context, id string, to domain.DraftStatus) error
	MarkPublished(ctx context.Context, id, externalPostID string, at time.Time) error
	ReplaceSlides(ctx context.Context, draftID string, slides []domain.CarouselSlide) error
	ListSlides(ctx context.Context, draftID string) ([]domain.CarouselSlide, error)
	SetCarouselHTML(ctx context.Context, draftID, html string) error
}

// VaultRepository persists identity vaults.
type VaultRepository interface {
	GetVault(ctx context.Context, userID string) (domain.IdentityVault, error)
	// SaveVault upserts the vault and increments its version atomically.
	SaveVault(ctx context.Context, userID string, data json.RawMessage, status domain.AuditStatus) (domain.IdentityVault, error)
}

// AccountRepository persists cloud and social credentials.
type AccountRepository interface {
	GetConnection(ctx context.Context, userID string, provider domain.Provider) (domain.CloudConnection, error)
	SaveConnection(ctx context.Context, conn domain.CloudConnection) error
	GetSocialAccount(ctx context.Context, userID, provider string) (domain.SocialAccount, error)
	SaveSocialAccount(ctx context.Context, account domain.SocialAccount) error
}

// RemoteFile is an entry of a cloud folder listing.
type RemoteFile struct {
	ID       string
	Name     string
	MimeType string
}

// CloudDrive lists and downloads files from a user's linked storage.
type CloudDrive interface {
	ListFolder(ctx context.Context, conn domain.CloudConnection, folderID string) ([]RemoteFile, error)
	Download(ctx context.Context, conn domain.CloudConnection, fileID string) (io.ReadCloser, error)
	RefreshToken(ctx context.Context, conn domain.CloudConnection) (domain.CloudConnection, error)
}

// TextExtractor turns a file body into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, body io.Reader, fileType domain.FileType) (string, error)
}

// Publisher posts content to a social account and returns the external id.
type Publisher interface {
	Publish(ctx context.Context, account domain.SocialAccount, content string) (string, error)
}

// CarouselRenderer turns ordered slides into an HTML deck.
type CarouselRenderer interface {
	Render(slides []domain.CarouselSlide) (string, error)
}

// Scheduler controls when periodic tasks execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
