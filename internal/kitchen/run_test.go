package kitchen

import (
	"path/filepath"
	"testing"

	xerrors "campus-canteen/internal/xpkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	p, err := parseParams([]string{"--clear=false"})
	require.NoError(t, err)
	assert.False(t, p.clear)
	assert.Equal(t, "config.yaml", p.configPath)

	_, err = parseParams([]string{"--help"})
	assert.ErrorIs(t, err, xerrors.ErrHelp)

	_, err = parseParams([]string{"--unknown"})
	assert.ErrorIs(t, err, xerrors.ErrParseCmd)
}

func TestValidateParamsRejectsMemoryStore(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	p, err := parseParams([]string{"--config-path", filepath.Join(t.TempDir(), "none.yaml")})
	require.NoError(t, err)
	assert.Error(t, validateParams(p))

	t.Setenv("STORE_DRIVER", "sqlite")
	require.NoError(t, validateParams(p))
	assert.Equal(t, "sqlite", p.cfg.Store.Driver)
}
