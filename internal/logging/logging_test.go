package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyFileRotates(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	d, err := newDailyFile(filepath.Join(dir, "logs"), func() time.Time { return now })
	require.NoError(t, err)
	defer d.Close()

	_, err = d.Write([]byte("first\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "logs", "app.log.2024-03-01"), d.Path())

	now = now.Add(2 * time.Minute)
	_, err = d.Write([]byte("second\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "logs", "app.log.2024-03-02"), d.Path())

	first, err := os.ReadFile(filepath.Join(dir, "logs", "app.log.2024-03-01"))
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(first))

	second, err := os.ReadFile(filepath.Join(dir, "logs", "app.log.2024-03-02"))
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(second))
}

func TestDailyFileClose(t *testing.T) {
	d, err := NewDailyFile(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	_, err = d.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestSetupWritesJSON(t *testing.T) {
	dir := t.TempDir()
	log, closer, err := Setup("info", dir, true)
	require.NoError(t, err)

	log.Debug().Msg("hidden")
	log.Info().Str("backend", "terminal").Msg("Starting")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, FileName+"."+time.Now().Format(time.DateOnly)))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"backend":"terminal"`)
	assert.Contains(t, string(data), `"message":"Starting"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestSetupErrors(t *testing.T) {
	_, _, err := Setup("loud", "", false)
	assert.Error(t, err)

	_, closer, err := Setup("debug", "", false)
	require.NoError(t, err)
	assert.NoError(t, closer.Close())
}
