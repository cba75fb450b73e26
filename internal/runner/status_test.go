package runner

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusLifecycle(t *testing.T) {
	tracker := NewStatusTracker()

	_, ok := tracker.Get("login")
	assert.False(t, ok)

	tracker.Start("login", "chrome", 4)
	st, ok := tracker.Get("login")
	require.True(t, ok)
	assert.Equal(t, "login", st.Test)
	assert.Equal(t, "chrome", st.Browser)
	assert.Equal(t, PhaseRunning, st.Phase)
	assert.Equal(t, 0, st.Progress)
	assert.Equal(t, 4, st.Total)

	_, err := time.Parse(time.RFC3339, st.Started)
	require.NoError(t, err)

	tracker.Step("login", "chrome")
	tracker.Step("login", "chrome")
	st, _ = tracker.Get("login")
	assert.Equal(t, 2, st.Progress)

	tracker.Finish("login", "chrome", false)
	st, _ = tracker.Get("login")
	assert.Equal(t, PhaseCompleted, st.Phase)
}

func TestStatusFailedFinish(t *testing.T) {
	tracker := NewStatusTracker()
	tracker.Start("broken", "edge", 1)
	tracker.Finish("broken", "edge", true)

	st, ok := tracker.Get("broken")
	require.True(t, ok)
	assert.Equal(t, PhaseFailed, st.Phase)
}

func TestStatusRestartResetsProgress(t *testing.T) {
	tracker := NewStatusTracker()
	tracker.Start("rerun", "chrome", 3)
	tracker.Step("rerun", "chrome")
	tracker.Finish("rerun", "chrome", true)

	tracker.Start("rerun", "chromium", 5)
	st, ok := tracker.Get("rerun")
	require.True(t, ok)
	assert.Equal(t, PhaseRunning, st.Phase)
	assert.Equal(t, 0, st.Progress)
	assert.Equal(t, 5, st.Total)
	assert.Equal(t, "chromium", st.Browser)
}

func TestStatusUnknownTestIsIgnored(t *testing.T) {
	tracker := NewStatusTracker()

	// Neither call should create an entry.
	tracker.Step("ghost", "chrome")
	tracker.Finish("ghost", "chrome", false)

	_, ok := tracker.Get("ghost")
	assert.False(t, ok)
}

func TestStatusEntryFollowsLatestTarget(t *testing.T) {
	tracker := NewStatusTracker()

	// Two targets run the same test; the second Start takes over the entry.
	tracker.Start("shared", "chrome", 2)
	tracker.Start("shared", "edge", 2)

	tracker.Step("shared", "chrome")
	tracker.Step("shared", "edge")
	tracker.Step("shared", "chrome")

	st, ok := tracker.Get("shared")
	require.True(t, ok)
	assert.Equal(t, "edge", st.Browser)
	assert.Equal(t, 1, st.Progress)

	// The displaced target cannot finish the entry it no longer owns.
	tracker.Finish("shared", "chrome", false)
	st, _ = tracker.Get("shared")
	assert.Equal(t, PhaseRunning, st.Phase)

	tracker.Step("shared", "edge")
	tracker.Finish("shared", "edge", false)
	st, _ = tracker.Get("shared")
	assert.Equal(t, PhaseCompleted, st.Phase)
	assert.Equal(t, 2, st.Progress)
	assert.LessOrEqual(t, st.Progress, st.Total)
}

func TestStatusConcurrentSteps(t *testing.T) {
	tracker := NewStatusTracker()
	tracker.Start("busy", "chrome", 100)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				tracker.Step("busy", "chrome")
			}
		}()
	}
	wg.Wait()

	st, _ := tracker.Get("busy")
	assert.Equal(t, 100, st.Progress)
}
