package sync

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
)

// ResultHandler applies a computed diff against the registry. Every write
// and every notification is fault-isolated: one failure is recorded and the
// batch continues. Partial success is the expected outcome; callers inspect
// the returned failure list.
type ResultHandler struct {
	writer   RegistryWriter
	notifier IssueNotifier
}

// NewResultHandler creates a handler over the given collaborators.
func NewResultHandler(writer RegistryWriter, notifier IssueNotifier) *ResultHandler {
	return &ResultHandler{writer: writer, notifier: notifier}
}

// ApplyOptions controls what a handler invocation is allowed to do.
type ApplyOptions struct {
	// DryRun disables every registry write.
	DryRun bool
	// Notify enables issue submission for conflicts, outdated records and
	// accumulated failures.
	Notify bool
}

// Apply executes the diff. With DryRun set and Notify unset it is a pure
// preview and returns an empty list.
func (h *ResultHandler) Apply(ctx context.Context, result *DiffResult, opts ApplyOptions) []FailedAction {
	var failed []FailedAction

	if opts.DryRun && !opts.Notify {
		return failed
	}

	if !opts.DryRun {
		failed = append(failed, h.applyCreates(ctx, result)...)
		failed = append(failed, h.applyUpdates(ctx, result)...)
	}

	if opts.Notify {
		failed = append(failed, h.notifyIssues(ctx, result)...)

		if len(failed) > 0 {
			if err := h.notifier.SubmitIssue(ctx, summaryIssue(failed)); err != nil {
				log.Printf("[SYNC] failed to submit failure summary: %v", err)
			}
		}
	}

	return failed
}

func (h *ResultHandler) applyCreates(ctx context.Context, result *DiffResult) []FailedAction {
	var failed []FailedAction
	for _, institution := range result.InstitutionsToCreate {
		if _, err := h.writer.CreateInstitution(ctx, institution); err != nil {
			failed = append(failed, FailedAction{
				Entity:  institution.Name,
				Message: fmt.Sprintf("create institution: %v", err),
			})
		}
	}
	return failed
}

func (h *ResultHandler) applyUpdates(ctx context.Context, result *DiffResult) []FailedAction {
	var failed []FailedAction

	for _, u := range result.InstitutionUpdates {
		if u.EntityChanged {
			if err := h.writer.UpdateInstitution(ctx, u.New); err != nil {
				failed = append(failed, FailedAction{
					EntityKey: u.Old.Key,
					Entity:    u.Old.Name,
					Message:   fmt.Sprintf("update institution: %v", err),
				})
			}
		}
		// Staff changes are applied even when the entity itself failed or
		// was unchanged; each sub-action is isolated on its own.
		failed = append(failed, h.applyStaff(ctx, EntityKindInstitution, u.Old.Key, u.Old.Name, u.Staff)...)
	}

	for _, u := range result.CollectionUpdates {
		if u.EntityChanged {
			if err := h.writer.UpdateCollection(ctx, u.New); err != nil {
				failed = append(failed, FailedAction{
					EntityKey: u.Old.Key,
					Entity:    u.Old.Name,
					Message:   fmt.Sprintf("update collection: %v", err),
				})
			}
		}
		failed = append(failed, h.applyStaff(ctx, EntityKindCollection, u.Old.Key, u.Old.Name, u.Staff)...)
	}

	return failed
}

func (h *ResultHandler) applyStaff(ctx context.Context, kind EntityKind, entityKey uuid.UUID, entityName string, staff *StaffDiffResult) []FailedAction {
	if staff == nil {
		return nil
	}

	var failed []FailedAction

	for _, p := range staff.ToCreate {
		if _, err := h.writer.CreatePerson(ctx, kind, entityKey, p); err != nil {
			failed = append(failed, FailedAction{
				EntityKey: entityKey,
				Entity:    fmt.Sprintf("%s %s / contact %s %s", kind, entityName, p.FirstName, p.LastName),
				Message:   fmt.Sprintf("create contact: %v", err),
			})
		}
	}

	for _, u := range staff.ToUpdate {
		if err := h.writer.UpdatePerson(ctx, u.New); err != nil {
			failed = append(failed, FailedAction{
				EntityKey: u.Old.Key,
				Entity:    fmt.Sprintf("%s %s / contact %s %s", kind, entityName, u.Old.FirstName, u.Old.LastName),
				Message:   fmt.Sprintf("update contact: %v", err),
			})
		}
	}

	for _, p := range staff.ToDelete {
		if err := h.writer.DeletePerson(ctx, p.Key); err != nil {
			failed = append(failed, FailedAction{
				EntityKey: p.Key,
				Entity:    fmt.Sprintf("%s %s / contact %s %s", kind, entityName, p.FirstName, p.LastName),
				Message:   fmt.Sprintf("delete contact: %v", err),
			})
		}
	}

	return failed
}

func (h *ResultHandler) notifyIssues(ctx context.Context, result *DiffResult) []FailedAction {
	var failed []FailedAction

	submit := func(issue Issue) {
		if err := h.notifier.SubmitIssue(ctx, issue); err != nil {
			failed = append(failed, FailedAction{
				Entity:  issue.Title,
				Message: fmt.Sprintf("submit issue: %v", err),
			})
		}
	}

	for _, c := range result.Conflicts {
		submit(conflictIssue(c))
	}
	for _, o := range result.Outdated {
		submit(outdatedIssue(o))
	}
	for _, u := range result.InstitutionUpdates {
		for _, sc := range staffConflictIssues(u.Old.Key, u.Old.Name, u.Staff) {
			submit(sc)
		}
	}
	for _, u := range result.CollectionUpdates {
		for _, sc := range staffConflictIssues(u.Old.Key, u.Old.Name, u.Staff) {
			submit(sc)
		}
	}

	return failed
}

func conflictIssue(c ConflictRecord) Issue {
	var b strings.Builder
	fmt.Fprintf(&b, "IH record %s (code %s, %q): %s.\n", c.IRN, c.Code, c.Name, c.Reason)
	for _, k := range c.InstitutionKeys {
		fmt.Fprintf(&b, "- institution %s\n", k)
	}
	for _, k := range c.CollectionKeys {
		fmt.Fprintf(&b, "- collection %s\n", k)
	}
	keys := append(append([]uuid.UUID(nil), c.InstitutionKeys...), c.CollectionKeys...)
	return Issue{
		Title:       fmt.Sprintf("Conflict for IH record %s (%s)", c.IRN, c.Code),
		Description: b.String(),
		EntityKeys:  keys,
		IRN:         c.IRN,
	}
}

func outdatedIssue(o OutdatedRecord) Issue {
	return Issue{
		Title: fmt.Sprintf("Outdated IH record %s (%s)", o.IRN, o.Code),
		Description: fmt.Sprintf(
			"IH record %s (code %s, %q) is older than registry entity %s (%q); the registry side was modified more recently. No update was applied.",
			o.IRN, o.Code, o.Name, o.EntityKey, o.EntityName),
		EntityKeys: []uuid.UUID{o.EntityKey},
		IRN:        o.IRN,
	}
}

func staffConflictIssues(entityKey uuid.UUID, entityName string, staff *StaffDiffResult) []Issue {
	if staff == nil {
		return nil
	}
	var issues []Issue
	for _, c := range staff.Conflicts {
		var b strings.Builder
		fmt.Fprintf(&b, "Staff record %s (%s %s) on %q: %s.\n", c.Staff.IRN, c.Staff.FirstName, c.Staff.LastName, entityName, c.Reason)
		for _, p := range c.Persons {
			fmt.Fprintf(&b, "- contact %s (%s %s)\n", p.Key, p.FirstName, p.LastName)
		}
		issues = append(issues, Issue{
			Title:       fmt.Sprintf("Staff conflict on %s", entityName),
			Description: b.String(),
			EntityKeys:  []uuid.UUID{entityKey},
			IRN:         c.Staff.IRN.String(),
		})
	}
	return issues
}

func summaryIssue(failed []FailedAction) Issue {
	var b strings.Builder
	fmt.Fprintf(&b, "%d actions failed during the IH sync run:\n", len(failed))
	for _, f := range failed {
		if f.Entity != "" {
			fmt.Fprintf(&b, "- %s: %s\n", f.Entity, f.Message)
		} else {
			fmt.Fprintf(&b, "- %s\n", f.Message)
		}
	}
	return Issue{
		Title:       fmt.Sprintf("IH sync: %d failed actions", len(failed)),
		Description: b.String(),
	}
}
