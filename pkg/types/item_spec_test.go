package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeMapStamp(t *testing.T) {
	var m TimeMap
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	m = m.Stamp("archived", at)
	require.NotNil(t, m)
	assert.Equal(t, at, m["archived"])

	later := at.Add(time.Hour)
	m = m.Stamp("archived", later)
	assert.Equal(t, later, m["archived"])
}

func TestTimeMapDatabaseRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := TimeMap{"archived": at}

	// Map-based updates hand the value straight to the SQL driver, so the
	// map has to marshal itself.
	value, err := m.Value()
	require.NoError(t, err)
	raw, ok := value.(string)
	require.True(t, ok)

	var text TimeMap
	require.NoError(t, text.Scan(raw))
	assert.True(t, text["archived"].Equal(at))

	var bytes TimeMap
	require.NoError(t, bytes.Scan([]byte(raw)))
	assert.True(t, bytes["archived"].Equal(at))
}

func TestTimeMapNilColumnForms(t *testing.T) {
	var m TimeMap
	value, err := m.Value()
	require.NoError(t, err)
	assert.Nil(t, value)

	filled := TimeMap{"shipped": time.Now().UTC()}
	require.NoError(t, filled.Scan(nil))
	assert.Nil(t, filled)

	var typed TimeMap
	assert.Error(t, typed.Scan(42))
}
