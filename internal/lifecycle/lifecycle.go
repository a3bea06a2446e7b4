// Package lifecycle holds the authoritative statuses and legal transitions of
// the Steel Loop entities. Guards are pure functions; callers perform the
// writes.
package lifecycle

import (
	"errors"
	"fmt"

	"steelloop/internal/domain"
)

// ErrIllegalTransition is wrapped by every refused guard.
var ErrIllegalTransition = errors.New("illegal transition")

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrIllegalTransition, r.Reason)
}

func allow() GuardResult { return GuardResult{Allowed: true} }

func deny(format string, args ...any) GuardResult {
	return GuardResult{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

var projectTransitions = map[domain.ProjectStatus][]domain.ProjectStatus{
	domain.ProjectLinking:    {domain.ProjectProcessing},
	domain.ProjectReady:      {domain.ProjectProcessing},
	domain.ProjectProcessing: {domain.ProjectReady},
	domain.ProjectArchived:   {},
}

// error is reachable from every non-terminal state; published and error are terminal.
var itemTransitions = map[domain.ItemStatus][]domain.ItemStatus{
	domain.ItemNew:             {domain.ItemScouting, domain.ItemError},
	domain.ItemScouting:        {domain.ItemSparksGenerated, domain.ItemError},
	domain.ItemSparksGenerated: {domain.ItemDrafting, domain.ItemError},
	domain.ItemDrafting:        {domain.ItemReady, domain.ItemPublished, domain.ItemError},
	domain.ItemReady:           {domain.ItemPublished, domain.ItemError},
	domain.ItemPublished:       {},
	domain.ItemError:           {},
}

var sparkTransitions = map[domain.SparkStatus][]domain.SparkStatus{
	domain.SparkPending:  {domain.SparkApproved, domain.SparkRejected},
	domain.SparkApproved: {domain.SparkDrafted},
	domain.SparkRejected: {},
	domain.SparkDrafted:  {},
}

var draftTransitions = map[domain.DraftStatus][]domain.DraftStatus{
	domain.DraftDraft:     {domain.DraftApproved},
	domain.DraftApproved:  {domain.DraftPublished},
	domain.DraftPublished: {},
}

func permitted[S comparable](table map[S][]S, from, to S) bool {
	for _, candidate := range table[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func sources[S comparable](table map[S][]S, to S) []S {
	var out []S
	for from, targets := range table {
		for _, candidate := range targets {
			if candidate == to {
				out = append(out, from)
				break
			}
		}
	}
	return out
}

// CanProject evaluates a project status change.
func CanProject(from, to domain.ProjectStatus) GuardResult {
	if permitted(projectTransitions, from, to) {
		return allow()
	}
	return deny("project cannot move from %s to %s", from, to)
}

// CanItem evaluates a pipeline item status change.
func CanItem(from, to domain.ItemStatus) GuardResult {
	if permitted(itemTransitions, from, to) {
		return allow()
	}
	return deny("pipeline item cannot move from %s to %s", from, to)
}

// CanSpark evaluates a spark status change.
func CanSpark(from, to domain.SparkStatus) GuardResult {
	if permitted(sparkTransitions, from, to) {
		return allow()
	}
	return deny("spark cannot move from %s to %s", from, to)
}

// CanDraft evaluates a post draft status change.
func CanDraft(from, to domain.DraftStatus) GuardResult {
	if permitted(draftTransitions, from, to) {
		return allow()
	}
	return deny("draft cannot move from %s to %s", from, to)
}

// ProjectSources lists the statuses a project may enter `to` from.
func ProjectSources(to domain.ProjectStatus) []domain.ProjectStatus {
	return sources(projectTransitions, to)
}

// ItemSources lists the statuses a pipeline item may enter `to` from.
func ItemSources(to domain.ItemStatus) []domain.ItemStatus {
	return sources(itemTransitions, to)
}

// SparkSources lists the statuses a spark may enter `to` from.
func SparkSources(to domain.SparkStatus) []domain.SparkStatus {
	return sources(sparkTransitions, to)
}

// DraftSources lists the statuses a draft may enter `to` from.
func DraftSources(to domain.DraftStatus) []domain.DraftStatus {
	return sources(draftTransitions, to)
}

// IsTerminalItem reports whether no transition leaves the status.
func IsTerminalItem(status domain.ItemStatus) bool {
	return len(itemTransitions[status]) == 0
}
