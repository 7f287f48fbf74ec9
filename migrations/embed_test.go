package migrations

import (
	"io/fs"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderRef = regexp.MustCompile(`(?i)REFERENCES\s+orders\s*\(\s*id\s*\)([^,\n]*)`)

func TestOrderChildrenCascadeOnDelete(t *testing.T) {
	ups, err := fs.Glob(FS, "*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)

	refs := 0
	for _, name := range ups {
		raw, err := fs.ReadFile(FS, name)
		require.NoError(t, err)
		for _, m := range orderRef.FindAllStringSubmatch(string(raw), -1) {
			refs++
			assert.Contains(t, strings.ToUpper(m[1]), "ON DELETE CASCADE", "%s: %s", name, m[0])
		}
	}
	assert.Equal(t, 6, refs)
}

func TestEveryUpHasADown(t *testing.T) {
	ups, err := fs.Glob(FS, "*.up.sql")
	require.NoError(t, err)
	for _, up := range ups {
		_, err := fs.Stat(FS, strings.TrimSuffix(up, ".up.sql")+".down.sql")
		assert.NoError(t, err, up)
	}
}
