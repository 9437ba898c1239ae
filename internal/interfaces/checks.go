package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/grscicoll/ihsync/internal/database/syncruns"
	"github.com/grscicoll/ihsync/internal/grscicoll"
	"github.com/grscicoll/ihsync/internal/ih"
	"github.com/grscicoll/ihsync/internal/services"
	"github.com/grscicoll/ihsync/internal/sync"
)

// =============================================================================
// External Services
// =============================================================================

// DirectorySource / StaffFetcher implementations
var _ services.DirectorySource = (*ih.Client)(nil)
var _ sync.StaffFetcher = (*ih.Client)(nil)

// RegistryReader / RegistryWriter implementations
var _ services.RegistryReader = (*grscicoll.Client)(nil)
var _ sync.RegistryWriter = (*grscicoll.Client)(nil)

// IssueNotifier implementations
var _ sync.IssueNotifier = (*grscicoll.IssueTracker)(nil)

// =============================================================================
// Data Access Layer
// =============================================================================

// RunStore implementations
var _ services.RunStore = (*syncruns.Repository)(nil)
