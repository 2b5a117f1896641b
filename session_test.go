package storecrawl

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSessionStoreRoundTrip(t *testing.T) {
	store := NewFileSessionStore(t.TempDir())
	key := sessionKey("https://www.example.com")

	assert.False(t, store.Exists(key))

	snapshot := SessionSnapshot{
		Cookies: []SessionCookie{{Name: "sid", Value: "abc", Domain: ".example.com", Path: "/", HttpOnly: true}},
		Origins: []OriginStorage{{Origin: "https://www.example.com", LocalStorage: []NameValue{{Name: "token", Value: "xyz"}}}},
	}
	data, err := json.Marshal(snapshot)
	require.NoError(t, err)

	require.NoError(t, store.Write(key, data))
	assert.True(t, store.Exists(key))

	got, err := store.Read(key)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	decoded, err := decodeSnapshot(got)
	require.NoError(t, err)
	assert.Equal(t, &snapshot, decoded)

	modTime, err := store.ModTime(key)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), modTime, time.Minute)

	require.NoError(t, store.Delete(key))
	assert.False(t, store.Exists(key))
}

func TestFileSessionStoreDeleteIsIdempotent(t *testing.T) {
	store := NewFileSessionStore(t.TempDir())
	require.NoError(t, store.Delete("never-written.json"))
}

func TestDecodeSnapshotFailsClosed(t *testing.T) {
	_, err := decodeSnapshot([]byte(`{"cookies":[{"name":`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt session snapshot")
}

func TestSessionKeyIsStable(t *testing.T) {
	a := sessionKey("https://www.taobao.com")
	b := sessionKey("https://www.taobao.com")
	c := sessionKey("https://www.example.com")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, len("0123456789abcdef.json"))
}
