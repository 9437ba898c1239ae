// Package interfaces documents the core abstractions used throughout the application.
//
// This package consolidates interface documentation to help contributors understand
// extension points and how to implement new functionality.
//
// # Interface Categories
//
// The application uses several categories of interfaces:
//
// ## External Service Interfaces
//
//   - DirectorySource: the Index Herbariorum directory a run walks (internal/services/interfaces.go)
//   - StaffFetcher: lazy per-institution staff retrieval (internal/sync/interfaces.go)
//   - RegistryReader: registry snapshot listing (internal/services/interfaces.go)
//   - RegistryWriter: single-entity registry writes (internal/sync/interfaces.go)
//   - IssueNotifier: conflict and failure reports (internal/sync/interfaces.go)
//
// ## Data Access Interfaces
//
//   - RunStore: sync run history persistence (internal/services/interfaces.go)
//
// # Adding a New Issue Notifier
//
// To report conflicts somewhere other than an issue tracker (e.g. a mail gateway):
//
//  1. Implement IssueNotifier:
//
//     type MailNotifier struct {
//         smtpAddr string
//     }
//
//     func (n *MailNotifier) SubmitIssue(ctx context.Context, issue sync.Issue) error
//
//     var _ sync.IssueNotifier = (*MailNotifier)(nil)
//
//  2. Wire it in entrypoint.BuildSyncService
//
// # Adding a New Directory Source
//
// To reconcile a directory other than Index Herbariorum:
//
//  1. Implement DirectorySource and StaffFetcher in a new client package
//
//  2. Map its records into ih.Institution / ih.Staff, or generalize the
//     converter input types
//
//  3. Wire the client in entrypoint.BuildSyncService
//
// # Adding a New Database Domain
//
// To add a new data domain (e.g. per-entity change history):
//
//  1. Create sub-package: internal/database/changes/
//
//  2. Define repository:
//
//     type Repository struct { db *gorm.DB }
//
//     func NewRepository(db *gorm.DB) *Repository
//
//  3. Implement interface methods
//
//  4. Add compile-time check:
//
//     var _ ChangeStore = (*Repository)(nil)
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// This pattern is used throughout the codebase. See checks.go for examples.
package interfaces
