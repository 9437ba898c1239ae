package tasks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClientForTest(t *testing.T) (*Client, string) {
	t.Helper()
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(filepath.Join(tmpDir, "runs.db"), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, tmpDir
}

func TestTasksDatabasePath(t *testing.T) {
	cases := []struct {
		main string
		want string
	}{
		{"runs.db", "runs-tasks.db"},
		{"/var/lib/ihsync/runs.db", "/var/lib/ihsync/runs-tasks.db"},
		{"data/runs.sqlite", "data/runs-tasks.sqlite"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, tasksDatabasePath(c.main))
	}
}

func TestNewClientCreatesQueueDatabase(t *testing.T) {
	_, tmpDir := newClientForTest(t)

	_, err := os.Stat(filepath.Join(tmpDir, "runs-tasks.db"))
	assert.NoError(t, err, "queue database should be created next to the runs database")
}

func TestClientStartStop(t *testing.T) {
	client, _ := newClientForTest(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	time.Sleep(50 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	assert.True(t, client.Stop(stopCtx), "stop should succeed gracefully")
}

type echoTask struct {
	Value string `json:"value"`
}

func (e echoTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "echo",
		MaxAttempts: 1,
		Backoff:     time.Second,
		Timeout:     5 * time.Second,
	}
}

func TestTaskEnqueueRunsProcessor(t *testing.T) {
	client, _ := newClientForTest(t)

	executed := make(chan string, 1)
	client.Register(backlite.NewQueue(func(ctx context.Context, task echoTask) error {
		executed <- task.Value
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	ids, err := client.Add(echoTask{Value: "hello"}).Save()
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	select {
	case val := <-executed:
		assert.Equal(t, "hello", val)
	case <-time.After(5 * time.Second):
		t.Fatal("task was not executed within timeout")
	}
}

func TestSyncRunTaskConfig(t *testing.T) {
	task := SyncRunTask{DryRun: true}
	cfg := task.Config()

	assert.Equal(t, "sync_run", cfg.Name)
	assert.Equal(t, 1, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Hour, cfg.Timeout)
	assert.NotNil(t, cfg.Retention)
}

func TestCleanupRunsTaskConfig(t *testing.T) {
	task := CleanupRunsTask{RetentionDays: 90}
	cfg := task.Config()

	assert.Equal(t, "cleanup_runs", cfg.Name)
	assert.Equal(t, 2, cfg.MaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.Timeout)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 1, cfg.MaxRetries)
	assert.Equal(t, 5*time.Minute, cfg.RetryDelay)
	assert.Equal(t, 2*time.Hour, cfg.TaskTimeout)
	assert.Equal(t, 3*time.Hour, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 30*24*time.Hour, cfg.RetentionDuration)
}
