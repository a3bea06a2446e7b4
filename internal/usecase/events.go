package usecase

// Event and job names of the Steel Loop.
const (
	EventIngestFiles    = "ingest-files"
	EventHookGeneration = "run-hook-generation"
	EventDraftExpansion = "run-draft-expansion"
	EventBuildCarousel  = "build-carousel"

	JobIngestFiles    = "ingest-files"
	JobHookGeneration = "run-hook-generation"
	JobDraftExpansion = "run-draft-expansion"
	JobBuildCarousel  = "build-carousel"
)

// IngestFilesPayload starts Forensic Extraction for a new pipeline item.
type IngestFilesPayload struct {
	ProjectID      string `json:"projectId"`
	PipelineItemID string `json:"pipelineItemId"`
	UserID         string `json:"userId"`
}

// HookGenerationPayload starts Hook Generation.
type HookGenerationPayload struct {
	PipelineItemID string `json:"pipelineItemId"`
	UserID         string `json:"userId"`
}

// DraftExpansionPayload starts Draft Expansion for an approved spark.
type DraftExpansionPayload struct {
	SparkID        string `json:"sparkId"`
	PipelineItemID string `json:"pipelineItemId"`
	UserID         string `json:"userId"`
}

// BuildCarouselPayload renders an approved draft's slides.
type BuildCarouselPayload struct {
	PostDraftID string `json:"postDraftId"`
}

// itemRef is the subset every item-scoped payload carries.
type itemRef struct {
	PipelineItemID string `json:"pipelineItemId"`
}
