package postgres

import (
	"testing"

	xerrors "campus-canteen/internal/xpkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNotification(t *testing.T) {
	n, err := parseNotification(`{"op":"update","id":12}`)
	require.NoError(t, err)
	assert.Equal(t, "update", n.Op)
	assert.Equal(t, int64(12), n.ID)

	for _, payload := range []string{
		``,
		`not json`,
		`{"op":"truncate","id":1}`,
		`{"op":"insert","id":0}`,
	} {
		_, err := parseNotification(payload)
		assert.ErrorIs(t, err, xerrors.ErrMalformedData, payload)
	}
}
