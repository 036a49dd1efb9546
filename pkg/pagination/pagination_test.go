package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-3))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
}

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 589000000, time.UTC),
		ID:        uuid.New(),
	}

	out, err := ParseCursor(EncodeCursor(in))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestParseCursorEdgeCases(t *testing.T) {
	empty, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, empty, "blank cursor means first page")

	_, err = ParseCursor("%%%not-base64%%%")
	assert.Error(t, err)

	_, err = ParseCursor("bm8tc2VwYXJhdG9y") // decodes without the field separator
	assert.Error(t, err)
}
