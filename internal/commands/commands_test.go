package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"feedreader/internal/core"
	"feedreader/internal/features/reader/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliEnv struct {
	dir      string
	database string
}

func newCLIEnv(t *testing.T) *cliEnv {
	dir := t.TempDir()
	return &cliEnv{dir: dir, database: filepath.Join(dir, "feedreader.db")}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := RootApp()
	app.Writer = &out
	app.ErrWriter = &out

	base := []string{"feedreader", "--env-file", filepath.Join(e.dir, "missing.env"), "--database", e.database}
	err := app.Run(append(base, args...))
	return out.String(), err
}

func TestMigrateAndStatus(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "migrate")
	require.NoError(t, err)

	out, err := env.run(t, "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "applied  001 create_reader_tables")

	_, err = env.run(t, "rollback")
	require.NoError(t, err)

	out, err = env.run(t, "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "pending  001 create_reader_tables")
}

func TestImportCommand(t *testing.T) {
	env := newCLIEnv(t)

	list := filepath.Join(env.dir, "feeds.toml")
	require.NoError(t, os.WriteFile(list, []byte(`
[[feed]]
url = "https://example.com/feed.xml"
tags = ["tech"]

[[feed]]
url = "https://blog.example.org/atom"
`), 0o644))

	out, err := env.run(t, "import", list)
	require.NoError(t, err)

	var result models.ImportResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 2, result.Added)

	out, err = env.run(t, "import", list)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 0, result.Added)
	assert.Equal(t, 2, result.Existing)

	_, err = env.run(t, "import")
	assert.Error(t, err)

	_, err = env.run(t, "import", filepath.Join(env.dir, "absent.toml"))
	assert.Error(t, err)
}

func TestFetchAndPurgeOnEmptyDatabase(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "fetch")
	require.NoError(t, err)

	var summary models.FetchSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Zero(t, summary.Total)

	out, err = env.run(t, "purge", "--days", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Purged 0 read articles")

	_, err = env.run(t, "purge", "--days", "0")
	assert.Error(t, err)

	_, err = env.run(t, "fetch", "--feed", "12")
	assert.Error(t, err)
}

func TestReaderCommandsRefuseWhenDisabled(t *testing.T) {
	t.Setenv("FEEDREADER_ENABLE_READER", "false")
	env := newCLIEnv(t)
	list := filepath.Join(env.dir, "feeds.toml")
	require.NoError(t, os.WriteFile(list, []byte("[[feed]]\nurl = \"https://example.com/feed.xml\"\n"), 0o644))

	for _, args := range [][]string{{"fetch"}, {"purge", "--days", "7"}, {"import", list}} {
		_, err := env.run(t, args...)
		assert.True(t, core.HasCode(err, core.ErrCodeConfiguration), "%v should be refused", args)
	}

	_, err := env.run(t, "migrate")
	assert.NoError(t, err)
}
