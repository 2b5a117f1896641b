package storecrawl

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeTransitionsToReady(t *testing.T) {
	launcher := newFakeLauncher()
	crawler := newTestCrawler(t, launcher)

	assert.Equal(t, StateIdle, crawler.GetStatus())
	require.NoError(t, crawler.Initialize())
	assert.Equal(t, StateReady, crawler.GetStatus())
	assert.Equal(t, 1, launcher.launches)
}

func TestInitializeIsIdempotent(t *testing.T) {
	launcher := newFakeLauncher()
	crawler := newTestCrawler(t, launcher)

	require.NoError(t, crawler.Initialize())
	require.NoError(t, crawler.Initialize())
	assert.Equal(t, 1, launcher.launches, "second initialize must be a no-op")
}

func TestInitializeFailureSetsErrorState(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.launchErr = fmt.Errorf("no browser binary")
	crawler := newTestCrawler(t, launcher)

	err := crawler.Initialize()
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeInitError))
	assert.Equal(t, StateError, crawler.GetStatus())

	// The instance can recover once the environment is fixed.
	launcher.launchErr = nil
	require.NoError(t, crawler.Initialize())
	assert.Equal(t, StateReady, crawler.GetStatus())
}

func TestInitializeSeedsContextFromSnapshot(t *testing.T) {
	launcher := newFakeLauncher()
	crawler := newTestCrawler(t, launcher)

	snapshot := []byte(`{"cookies":[{"name":"sid","value":"abc"}],"origins":[]}`)
	require.NoError(t, crawler.store.Write(crawler.sessionKey(), snapshot))

	require.NoError(t, crawler.Initialize())
	require.Len(t, launcher.browser.seededWith, 1)
	assert.Equal(t, snapshot, launcher.browser.seededWith[0])
}

func TestInitializeTreatsCorruptSnapshotAsAbsent(t *testing.T) {
	launcher := newFakeLauncher()
	crawler := newTestCrawler(t, launcher)

	require.NoError(t, crawler.store.Write(crawler.sessionKey(), []byte("{truncated")))

	require.NoError(t, crawler.Initialize())
	require.Len(t, launcher.browser.seededWith, 1)
	assert.Nil(t, launcher.browser.seededWith[0], "corrupt snapshot must not seed the context")
}

func TestInitializeRetriesFreshContextWhenEngineRejectsSnapshot(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.browser.rejectSeeded = true
	crawler := newTestCrawler(t, launcher)

	require.NoError(t, crawler.store.Write(crawler.sessionKey(), []byte(`{"cookies":[],"origins":[]}`)))

	require.NoError(t, crawler.Initialize())
	require.Len(t, launcher.browser.seededWith, 2)
	assert.NotNil(t, launcher.browser.seededWith[0])
	assert.Nil(t, launcher.browser.seededWith[1])
	assert.Equal(t, StateReady, crawler.GetStatus())
}

func TestCloseIsSafeWithoutInitialize(t *testing.T) {
	launcher := newFakeLauncher()
	crawler := newTestCrawler(t, launcher)

	require.NoError(t, crawler.Close())
	assert.Equal(t, StateClosed, crawler.GetStatus())
}

func TestCloseReleasesResources(t *testing.T) {
	launcher := newFakeLauncher()
	crawler := newTestCrawler(t, launcher)

	require.NoError(t, crawler.Initialize())
	context := launcher.browser.contexts[0]

	require.NoError(t, crawler.Close())
	assert.Equal(t, StateClosed, crawler.GetStatus())
	assert.True(t, context.closed)
	assert.True(t, launcher.browser.closed)
	assert.Equal(t, 1, launcher.stops)
}

func TestOperationsAfterCloseFail(t *testing.T) {
	launcher := newFakeLauncher()
	crawler := newTestCrawler(t, launcher)

	require.NoError(t, crawler.Initialize())
	require.NoError(t, crawler.Close())

	_, err := crawler.Search(SearchQuery{Keyword: "x"})
	require.Error(t, err)
}
