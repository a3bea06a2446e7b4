package domain

import (
	"strings"
	"time"
)

// ItemStatus enumerates the PipelineItem lifecycle.
type ItemStatus string

const (
	ItemNew             ItemStatus = "new"
	ItemScouting        ItemStatus = "scouting"
	ItemSparksGenerated ItemStatus = "sparks_generated"
	ItemDrafting        ItemStatus = "drafting"
	ItemReady           ItemStatus = "ready"
	ItemPublished       ItemStatus = "published"
	ItemError           ItemStatus = "error"
)

var itemStatuses = []ItemStatus{
	ItemNew,
	ItemScouting,
	ItemSparksGenerated,
	ItemDrafting,
	ItemReady,
	ItemPublished,
	ItemError,
}

// ItemStatuses returns the ordered list of item statuses.
func ItemStatuses() []ItemStatus {
	cp := make([]ItemStatus, len(itemStatuses))
	copy(cp, itemStatuses)
	return cp
}

// ParseItemStatus converts a string into a known ItemStatus.
func ParseItemStatus(value string) (ItemStatus, bool) {
	normalized := ItemStatus(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range itemStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// PipelineItem is one ingestion run of a project through the Steel Loop.
type PipelineItem struct {
	ID            string
	OwnerID       string
	ProjectID     string
	Status        ItemStatus
	ForensicBrief *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Brief returns the forensic brief or an empty string.
func (p PipelineItem) Brief() string {
	if p.ForensicBrief == nil {
		return ""
	}
	return *p.ForensicBrief
}

// SparkStatus enumerates the Spark lifecycle.
type SparkStatus string

const (
	SparkPending  SparkStatus = "pending"
	SparkApproved SparkStatus = "approved"
	SparkRejected SparkStatus = "rejected"
	SparkDrafted  SparkStatus = "drafted"
)

// MaxSparksPerItem bounds how many hooks one item may carry.
const MaxSparksPerItem = 5

// Spark is a short content hook awaiting human approval.
type Spark struct {
	ID             string
	PipelineItemID string
	Text           string
	SortOrder      int
	Status         SparkStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LengthType is the size class of a post draft.
type LengthType string

const (
	LengthShort  LengthType = "short"
	LengthMedium LengthType = "medium"
	LengthLong   LengthType = "long"
)

// LengthTypes lists the three drafts created per spark, in creation order.
func LengthTypes() []LengthType {
	return []LengthType{LengthShort, LengthMedium, LengthLong}
}

// DraftStatus enumerates the PostDraft lifecycle.
type DraftStatus string

const (
	DraftDraft     DraftStatus = "draft"
	DraftApproved  DraftStatus = "approved"
	DraftPublished DraftStatus = "published"
)

// PostDraft is a generated post scored by the quality gate.
type PostDraft struct {
	ID             string
	SparkID        string
	LengthType     LengthType
	Content        string
	Score          *int
	Status         DraftStatus
	PublishedAt    *time.Time
	ExternalPostID string
	CarouselHTML   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MaxCarouselSlides bounds the slides attached to a draft.
const MaxCarouselSlides = 7

// CarouselSlide is one page of an optional carousel.
type CarouselSlide struct {
	PostDraftID string
	SlideNumber int
	Headline    string
	Content     string
}
