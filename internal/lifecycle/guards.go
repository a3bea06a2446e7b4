package lifecycle

import "steelloop/internal/domain"

// IngestContext provides context for the ingestion trigger guard.
type IngestContext struct {
	Project   domain.Project
	FileCount int
}

// CanTriggerIngestion evaluates whether a new pipeline run may start.
// Rules:
// - Project must be able to enter processing
// - Project must have files or a linked source folder
func CanTriggerIngestion(ctx IngestContext) GuardResult {
	if res := CanProject(ctx.Project.Status, domain.ProjectProcessing); !res.Allowed {
		return res
	}
	if ctx.FileCount == 0 && !ctx.Project.HasSourceFolder() {
		return deny("project %s has no files to ingest and no cloud folder linked", ctx.Project.ID)
	}
	return allow()
}

// ItemAfterSparkApproval returns the item status an approval leads to and
// whether it differs from the current one. The first approval moves
// sparks_generated to drafting; later approvals leave drafting untouched.
func ItemAfterSparkApproval(current domain.ItemStatus) (domain.ItemStatus, bool) {
	if current == domain.ItemSparksGenerated {
		return domain.ItemDrafting, true
	}
	return current, false
}

// DraftingComplete reports whether every non-rejected spark has been drafted.
// At least one spark must be drafted.
func DraftingComplete(sparks []domain.Spark) bool {
	drafted := 0
	for _, spark := range sparks {
		switch spark.Status {
		case domain.SparkRejected:
			continue
		case domain.SparkDrafted:
			drafted++
		default:
			return false
		}
	}
	return drafted > 0
}

// CanPublishDraft evaluates whether a draft may be handed to the publisher.
// Rules:
// - Draft must be approved
// - Content must not be empty
func CanPublishDraft(draft domain.PostDraft) GuardResult {
	if res := CanDraft(draft.Status, domain.DraftPublished); !res.Allowed {
		return res
	}
	if draft.Content == "" {
		return deny("draft %s has no content", draft.ID)
	}
	return allow()
}
