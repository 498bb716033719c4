package workers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skport-checkin/models"
	"skport-checkin/services"
)

type stubRunner struct {
	batch   models.RunBatch
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *stubRunner) RunAll(_ context.Context, profiles []models.Profile) models.RunBatch {
	if s.started != nil {
		s.once.Do(func() { close(s.started) })
	}
	if s.release != nil {
		<-s.release
	}
	return s.batch
}

type mapArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (a *mapArchive) Put(_ context.Context, key string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.objects == nil {
		a.objects = map[string][]byte{}
	}
	a.objects[key] = data
	return nil
}

type recordingNotifier struct {
	err       error
	summaries []models.RunSummary
}

func (n *recordingNotifier) Notify(_ context.Context, s models.RunSummary) error {
	n.summaries = append(n.summaries, s)
	return n.err
}

type failingRecorder struct{}

func (failingRecorder) SaveRun(context.Context, *models.CheckInRun) error {
	return errors.New("database down")
}

var twoResults = models.RunBatch{
	{Name: "Main", Success: true, Status: "Check-in Successful. OK", Rewards: "Gold x100"},
	{Name: "Alt Account", Success: false, Status: services.StatusAuthFailed, Rewards: "cred expired"},
}

func TestCheckInWorker_RunOnce(t *testing.T) {
	history := NewMemoryHistory(5)
	archive := &mapArchive{}
	notifier := &recordingNotifier{}

	w := NewCheckInWorker(&stubRunner{batch: twoResults}, []models.Profile{{Cred: "a"}, {Cred: "b"}}, nil)
	w.History = history
	w.Archive = archive
	w.Notifiers = []services.Notifier{notifier}
	fixed := time.Date(2026, 10, 18, 0, 30, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	run, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 2, run.Total)
	assert.Equal(t, 1, run.Succeeded)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, twoResults, run.Batch())

	latest, err := history.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, run.ID, latest.ID)

	require.Len(t, notifier.summaries, 1)
	assert.Equal(t, run.ID, notifier.summaries[0].RunID)
	assert.Equal(t, twoResults, notifier.summaries[0].Results)

	archive.mu.Lock()
	defer archive.mu.Unlock()
	full, ok := archive.objects["reports/2026-10-18/"+run.ID+".json"]
	require.True(t, ok, "full report archived")
	var summary models.RunSummary
	require.NoError(t, json.Unmarshal(full, &summary))
	assert.Equal(t, twoResults, summary.Results)
	assert.Contains(t, archive.objects, "reports/2026-10-18/"+run.ID+"/00-main.json")
	assert.Contains(t, archive.objects, "reports/2026-10-18/"+run.ID+"/01-alt-account.json")
}

func TestCheckInWorker_SideEffectFailuresAreSwallowed(t *testing.T) {
	second := &recordingNotifier{}
	w := NewCheckInWorker(&stubRunner{batch: twoResults}, nil, nil)
	w.History = failingRecorder{}
	w.Notifiers = []services.Notifier{&recordingNotifier{err: errors.New("webhook 500")}, second}

	run, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, run.Total)
	assert.Len(t, second.summaries, 1, "a failing notifier does not stop the next one")
}

func TestCheckInWorker_OneRunAtATime(t *testing.T) {
	runner := &stubRunner{batch: twoResults, started: make(chan struct{}), release: make(chan struct{})}
	history := NewMemoryHistory(5)
	w := NewCheckInWorker(runner, nil, nil)
	w.History = history

	require.NoError(t, w.TriggerAsync(context.Background()))
	<-runner.started

	_, err := w.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.ErrorIs(t, w.TriggerAsync(context.Background()), ErrRunInProgress)

	close(runner.release)
	require.Eventually(t, func() bool {
		_, err := history.LatestRun(context.Background())
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	// lock released once the background run finished
	require.Eventually(t, func() bool {
		_, err := w.RunOnce(context.Background())
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCheckInWorker_WaitBlocksUntilRunCompletes(t *testing.T) {
	runner := &stubRunner{batch: twoResults, started: make(chan struct{}), release: make(chan struct{})}
	notifier := &recordingNotifier{}
	w := NewCheckInWorker(runner, nil, nil)
	w.Notifiers = []services.Notifier{notifier}

	require.NoError(t, w.TriggerAsync(context.Background()))
	<-runner.started

	waited := make(chan struct{})
	go func() {
		w.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("Wait returned while the run was still going")
	case <-time.After(50 * time.Millisecond):
	}

	close(runner.release)
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after the run finished")
	}
	assert.Len(t, notifier.summaries, 1, "notifiers ran before Wait returned")
}

func TestCheckInWorker_DuplicateNamesArchivedSeparately(t *testing.T) {
	archive := &mapArchive{}
	batch := models.RunBatch{
		{Name: "Main", Success: true, Status: "ok"},
		{Name: "Main", Success: false, Status: services.StatusException},
	}
	w := NewCheckInWorker(&stubRunner{batch: batch}, nil, nil)
	w.Archive = archive

	_, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	archive.mu.Lock()
	defer archive.mu.Unlock()
	assert.Len(t, archive.objects, 3, "full report plus one per account")
}

func TestMemoryHistory(t *testing.T) {
	h := NewMemoryHistory(2)
	ctx := context.Background()

	_, err := h.LatestRun(ctx)
	assert.ErrorIs(t, err, services.ErrRunNotFound)

	for _, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, h.SaveRun(ctx, &models.CheckInRun{ID: id}))
	}

	runs, err := h.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r3", runs[0].ID)
	assert.Equal(t, "r2", runs[1].ID)

	runs, err = h.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
