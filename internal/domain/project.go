package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when a row does not exist or is not
// visible to the requesting owner.
var ErrNotFound = errors.New("not found")

// ProjectStatus enumerates the project lifecycle.
type ProjectStatus string

const (
	ProjectLinking    ProjectStatus = "linking"
	ProjectProcessing ProjectStatus = "processing"
	ProjectReady      ProjectStatus = "ready"
	ProjectArchived   ProjectStatus = "archived"
)

// Provider identifies where a file or folder lives.
type Provider string

const (
	ProviderGoogleDrive Provider = "google_drive"
	ProviderOneDrive    Provider = "onedrive"
	ProviderUpload      Provider = "upload"
)

// Project groups the documents a user wants turned into content.
type Project struct {
	ID             string
	OwnerID        string
	Name           string
	Status         ProjectStatus
	SourceFolderID string
	SourceProvider Provider
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasSourceFolder reports whether a cloud folder is linked.
func (p Project) HasSourceFolder() bool {
	return p.SourceFolderID != "" && p.SourceProvider != ""
}

// FileType is the document format used to pick a text codec.
type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeDOCX  FileType = "docx"
	FileTypePPTX  FileType = "pptx"
	FileTypeTXT   FileType = "txt"
	FileTypeHTML  FileType = "html"
	FileTypeImage FileType = "image"
)

// ProjectFile is a document discovered in (or uploaded to) a project.
// (ProjectID, CloudFileID, Provider) is its natural key.
type ProjectFile struct {
	ID            string
	ProjectID     string
	FileName      string
	FileType      FileType
	CloudFileID   string
	Provider      Provider
	ExtractedText *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasText reports whether text extraction produced something usable.
func (f ProjectFile) HasText() bool {
	return f.ExtractedText != nil && *f.ExtractedText != ""
}

// CloudConnection stores OAuth tokens for a storage provider.
type CloudConnection struct {
	UserID       string
	Provider     Provider
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
}

// SocialAccount links a user to the account drafts are published to.
type SocialAccount struct {
	UserID            string
	Provider          string
	ExternalAccountID string
}

// ExpiresWithin reports whether the access token expires before now+buffer.
// A zero expiry is treated as already expired.
func (c CloudConnection) ExpiresWithin(now time.Time, buffer time.Duration) bool {
	if c.TokenExpiry.IsZero() {
		return true
	}
	return !c.TokenExpiry.After(now.Add(buffer))
}

// SocialProviderTelegram is the social provider backed by a Telegram channel.
const SocialProviderTelegram = "telegram"
