package tokenfile_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reading_room/internal/adapters/tokenfile"
)

func TestStore_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "admin_token")
	s := tokenfile.New(path)

	tok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok, "missing file means no token")

	require.NoError(t, s.Save(ctx, "abc123"))
	tok, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc123", tok)

	if runtime.GOOS != "windows" {
		st, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())
	}

	require.NoError(t, s.Save(ctx, "def456"))
	tok, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "def456", tok)

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx), "clearing twice is fine")
	tok, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
}
