package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grscicoll/ihsync/internal/countries"
	"github.com/grscicoll/ihsync/internal/entities"
	"github.com/grscicoll/ihsync/internal/ih"
	"github.com/grscicoll/ihsync/internal/sync"
)

type mockDirectory struct {
	records []ih.Institution
	err     error
}

func (m *mockDirectory) FetchInstitutions(ctx context.Context) ([]ih.Institution, error) {
	return m.records, m.err
}

type mockRegistry struct {
	institutions []*entities.Institution
	collections  []*entities.Collection
	err          error
}

func (m *mockRegistry) ListInstitutions(ctx context.Context) ([]*entities.Institution, error) {
	return m.institutions, m.err
}

func (m *mockRegistry) ListCollections(ctx context.Context) ([]*entities.Collection, error) {
	return m.collections, m.err
}

type mockRunStore struct {
	running   bool
	runs      []*entities.SyncRun
	completed []*entities.SyncRun
	failed    map[uint]string
}

func newMockRunStore() *mockRunStore {
	return &mockRunStore{failed: map[uint]string{}}
}

func (m *mockRunStore) Start(dryRun bool) (*entities.SyncRun, error) {
	run := &entities.SyncRun{
		ID:     uint(len(m.runs) + 1),
		Status: entities.SyncRunStatusRunning,
		DryRun: dryRun,
	}
	m.runs = append(m.runs, run)
	return run, nil
}

func (m *mockRunStore) Complete(run *entities.SyncRun) error {
	run.Status = entities.SyncRunStatusCompleted
	m.completed = append(m.completed, run)
	return nil
}

func (m *mockRunStore) Fail(run *entities.SyncRun, errMsg string) error {
	run.Status = entities.SyncRunStatusFailed
	m.failed[run.ID] = errMsg
	return nil
}

func (m *mockRunStore) IsRunning() (bool, error) {
	return m.running, nil
}

type nopStaffFetcher struct{}

func (nopStaffFetcher) FetchStaff(ctx context.Context, code string) ([]ih.Staff, error) {
	return nil, nil
}

type countingWriter struct {
	created int
}

func (w *countingWriter) CreateInstitution(ctx context.Context, institution *entities.Institution) (uuid.UUID, error) {
	w.created++
	return uuid.New(), nil
}

func (w *countingWriter) UpdateInstitution(ctx context.Context, institution *entities.Institution) error {
	return nil
}

func (w *countingWriter) UpdateCollection(ctx context.Context, collection *entities.Collection) error {
	return nil
}

func (w *countingWriter) CreatePerson(ctx context.Context, kind sync.EntityKind, entityKey uuid.UUID, person *entities.Person) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (w *countingWriter) UpdatePerson(ctx context.Context, person *entities.Person) error {
	return nil
}

func (w *countingWriter) DeletePerson(ctx context.Context, key uuid.UUID) error {
	return nil
}

type nopNotifier struct{}

func (nopNotifier) SubmitIssue(ctx context.Context, issue sync.Issue) error {
	return nil
}

func newTestService(directory *mockDirectory, registry *mockRegistry, writer *countingWriter, runs *mockRunStore) *SyncService {
	converter := sync.NewConverter(countries.DefaultMatcher())
	finder := sync.NewDiffFinder(converter, nopStaffFetcher{}, "GRSCICOLL_MIGRATION")
	handler := sync.NewResultHandler(writer, nopNotifier{})
	return NewSyncService(directory, registry, finder, handler, runs)
}

func TestSyncService_Run(t *testing.T) {
	directory := &mockDirectory{records: []ih.Institution{
		{IRN: json.Number("1"), Organization: "New Herbarium", Code: "NEW"},
	}}
	writer := &countingWriter{}
	runs := newMockRunStore()

	run, err := newTestService(directory, &mockRegistry{}, writer, runs).
		Run(context.Background(), SyncOptions{})
	require.NoError(t, err)

	assert.Equal(t, entities.SyncRunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.InstitutionsSeen)
	assert.Equal(t, 1, run.InstitutionsCreated)
	assert.Equal(t, 1, writer.created)
	require.Len(t, runs.completed, 1)
}

func TestSyncService_DryRunDoesNotWrite(t *testing.T) {
	directory := &mockDirectory{records: []ih.Institution{
		{IRN: json.Number("1"), Organization: "New Herbarium", Code: "NEW"},
	}}
	writer := &countingWriter{}
	runs := newMockRunStore()

	run, err := newTestService(directory, &mockRegistry{}, writer, runs).
		Run(context.Background(), SyncOptions{DryRun: true})
	require.NoError(t, err)

	assert.True(t, run.DryRun)
	assert.Equal(t, 1, run.InstitutionsCreated, "dry run still reports the diff")
	assert.Equal(t, 0, writer.created, "dry run must not write")
}

func TestSyncService_Limit(t *testing.T) {
	directory := &mockDirectory{records: []ih.Institution{
		{IRN: json.Number("1"), Code: "A"},
		{IRN: json.Number("2"), Code: "B"},
		{IRN: json.Number("3"), Code: "C"},
	}}
	runs := newMockRunStore()

	run, err := newTestService(directory, &mockRegistry{}, &countingWriter{}, runs).
		Run(context.Background(), SyncOptions{DryRun: true, Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, run.InstitutionsSeen)
}

func TestSyncService_RejectsConcurrentRun(t *testing.T) {
	runs := newMockRunStore()
	runs.running = true

	_, err := newTestService(&mockDirectory{}, &mockRegistry{}, &countingWriter{}, runs).
		Run(context.Background(), SyncOptions{})
	assert.ErrorIs(t, err, ErrSyncAlreadyRunning)
	assert.Empty(t, runs.runs, "no run record may be created")
}

func TestSyncService_DirectoryFailureFailsRun(t *testing.T) {
	directory := &mockDirectory{err: errors.New("directory down")}
	runs := newMockRunStore()

	run, err := newTestService(directory, &mockRegistry{}, &countingWriter{}, runs).
		Run(context.Background(), SyncOptions{})
	require.Error(t, err)
	require.NotNil(t, run)

	assert.Equal(t, entities.SyncRunStatusFailed, run.Status)
	assert.Contains(t, runs.failed[run.ID], "directory down")
	assert.Empty(t, runs.completed)
}

func TestSyncService_RegistryFailureFailsRun(t *testing.T) {
	directory := &mockDirectory{records: []ih.Institution{{IRN: json.Number("1"), Code: "A"}}}
	registry := &mockRegistry{err: errors.New("registry down")}
	runs := newMockRunStore()

	run, err := newTestService(directory, registry, &countingWriter{}, runs).
		Run(context.Background(), SyncOptions{})
	require.Error(t, err)
	assert.Equal(t, entities.SyncRunStatusFailed, run.Status)
}
