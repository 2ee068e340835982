package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieFile_Missing(t *testing.T) {
	f := NewCookieFile(filepath.Join(t.TempDir(), "token.json"))

	tok, err := f.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)
	require.NoError(t, f.Clear(), "clearing an empty store is fine")
}

func TestCookieFile_SaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	f := NewCookieFile(path)

	require.NoError(t, f.Save("T1", time.Now().Add(24*time.Hour)))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	tok, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, "T1", tok)

	require.NoError(t, f.Save("T2", time.Now().Add(24*time.Hour)))
	tok, err = f.Load()
	require.NoError(t, err)
	assert.Equal(t, "T2", tok)

	require.NoError(t, f.Clear())
	tok, err = f.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestCookieFile_Expired(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	f := NewCookieFile(path)
	now := time.Now()
	f.now = func() time.Time { return now }

	require.NoError(t, f.Save("T1", now.Add(time.Minute)))
	f.now = func() time.Time { return now.Add(25 * time.Hour) }

	tok, err := f.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "expired cookie is deleted")
}

func TestCookieFile_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewCookieFile(path).Load()
	require.ErrorContains(t, err, "decode cookie file")
}

func TestCookieFile_OtherCookie(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"session","value":"x","expires":"2999-01-01T00:00:00Z"}`), 0o600))

	tok, err := NewCookieFile(path).Load()
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestCookieFile_SaveEmpty(t *testing.T) {
	f := NewCookieFile(filepath.Join(t.TempDir(), "token.json"))
	require.Error(t, f.Save("", time.Now().Add(time.Hour)))
}
