package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(scripts, "sql")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}

	assert.Equal(t, ups, downs)
}

func TestJobsScriptHasRunningKeyIndex(t *testing.T) {
	content, err := fs.ReadFile(scripts, "sql/000002_create_jobs.up.sql")
	require.NoError(t, err)

	assert.Contains(t, string(content), "ON jobs (serialization_key) WHERE status = 'running'")
	assert.Contains(t, string(content), "nextval('jobs_priority_seq')")
}
