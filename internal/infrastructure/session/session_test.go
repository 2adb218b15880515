package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/orderconsole/pkg/config"
	"github.com/betbot/orderconsole/pkg/persistence"
)

func TestStore_JSONRoundTrip(t *testing.T) {
	s := New(persistence.NewJSONFileService(t.TempDir()))

	id, err := s.LoadUserID()
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, s.SaveUserID(" alice "))
	id, err = s.LoadUserID()
	require.NoError(t, err)
	assert.Equal(t, "alice", id)
}

func TestOpen_Backends(t *testing.T) {
	for _, backend := range []string{config.SessionBackendJSON, config.SessionBackendBadger} {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()
			cfg := &config.Config{SessionDir: dir, SessionBackend: backend}

			s, closer, err := Open(cfg)
			require.NoError(t, err)
			require.NoError(t, s.SaveUserID("bob"))
			require.NoError(t, closer.Close())

			// 重新打开后仍能读到
			s, closer, err = Open(cfg)
			require.NoError(t, err)
			defer closer.Close()
			id, err := s.LoadUserID()
			require.NoError(t, err)
			assert.Equal(t, "bob", id)
		})
	}
}

func TestResolveUserID(t *testing.T) {
	s := New(persistence.NewJSONFileService(t.TempDir()))
	assert.Equal(t, "user123", ResolveUserID("", s, "user123"))
	assert.Equal(t, "user123", ResolveUserID("", nil, "user123"))

	require.NoError(t, s.SaveUserID("carol"))
	assert.Equal(t, "carol", ResolveUserID("  ", s, "user123"))
	assert.Equal(t, "dave", ResolveUserID("dave", s, "user123"))
}

func TestStore_CorruptRecord(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session_order-console.json"), []byte("{not json"), 0o644))

	s := New(persistence.NewJSONFileService(dir))
	_, err := s.LoadUserID()
	assert.Error(t, err)
	assert.Equal(t, "user123", ResolveUserID("", s, "user123"))
}
