package buildsupport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvisionSkipsWhenBloopDirExists(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".bloop"), 0o755))

	p := NewBloopProvisioner(zerolog.Nop())
	err := p.Provision(context.Background(), root)
	require.NoError(t, err)

	// No plugins.sbt should have been written since we skipped entirely.
	_, err = os.Stat(filepath.Join(root, "project", "plugins.sbt"))
	assert.True(t, os.IsNotExist(err))
}

func TestEnsurePluginDeclaredIsIdempotent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, ensurePluginDeclared(root))
	require.NoError(t, ensurePluginDeclared(root))

	body, err := os.ReadFile(filepath.Join(root, "project", "plugins.sbt"))
	require.NoError(t, err)
	assert.Equal(t, 1, countOccurrences(string(body), "sbt-bloop"))
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
		}
	}
	return count
}

func TestNameIsBloop(t *testing.T) {
	p := NewBloopProvisioner(zerolog.Nop())
	assert.Equal(t, "bloop", p.Name())
}
