package specs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/reiger65/stonewhistle-workshop-manager/pkg/db/models"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/logger"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/types"
)

type stubSpecRepo struct {
	pinned map[string]*models.AuthoritativeSpec
}

func (s *stubSpecRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubSpecRepo) FindBySerial(_ context.Context, serial string) (*models.AuthoritativeSpec, error) {
	if record, ok := s.pinned[serial]; ok {
		return record, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubSpecRepo) Pin(_ context.Context, record *models.AuthoritativeSpec) (*models.AuthoritativeSpec, error) {
	if existing, ok := s.pinned[record.SerialNumber]; ok {
		return existing, nil
	}
	if s.pinned == nil {
		s.pinned = map[string]*models.AuthoritativeSpec{}
	}
	s.pinned[record.SerialNumber] = record
	return record, nil
}

type stubMappingReader struct {
	mappings map[string]*models.ItemMapping
}

func (s *stubMappingReader) FindMappingBySerial(_ context.Context, serial string) (*models.ItemMapping, error) {
	if m, ok := s.mappings[serial]; ok {
		return m, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func newTestResolver(t *testing.T, repo Repository, mappings MappingSnapshotReader) *Resolver {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test"})
	resolver, err := NewResolver(repo, mappings, logg)
	require.NoError(t, err)
	return resolver
}

func TestReconcilePinnedSpecWins(t *testing.T) {
	repo := &stubSpecRepo{pinned: map[string]*models.AuthoritativeSpec{
		"SW-2001-1": {
			SerialNumber: "SW-2001-1",
			ItemType:     "Alpha",
			Tuning:       "C4",
			Frequency:    "440",
			PinnedAt:     time.Now().UTC(),
		},
	}}
	mappings := &stubMappingReader{mappings: map[string]*models.ItemMapping{
		"SW-2001-1": {SerialNumber: "SW-2001-1", CachedSpec: types.ItemSpec{ItemType: "Orion"}},
	}}
	resolver := newTestResolver(t, repo, mappings)

	// Extraction drifted after a listing edit; the pin must hold.
	got, err := resolver.Reconcile(context.Background(), "SW-2001-1", types.ItemSpec{
		ItemType: "Vega", Tuning: "E3", Frequency: "432", Engraving: "for Mira",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alpha", got.ItemType)
	assert.Equal(t, "C4", got.Tuning)
	assert.Equal(t, "440", got.Frequency)
	// Fields the pin does not carry pass through from extraction.
	assert.Equal(t, "for Mira", got.Engraving)
}

func TestReconcileHistoricalOverride(t *testing.T) {
	resolver := newTestResolver(t, &stubSpecRepo{}, &stubMappingReader{})

	got, err := resolver.Reconcile(context.Background(), "SW-1087-1", types.ItemSpec{
		ItemType: "Alpha", Tuning: "C4", Frequency: "440",
	})
	require.NoError(t, err)
	assert.Equal(t, "Orion", got.ItemType)
	assert.Equal(t, "D3", got.Tuning)
	assert.Equal(t, "432", got.Frequency)
}

func TestReconcileCachedSnapshotFallback(t *testing.T) {
	mappings := &stubMappingReader{mappings: map[string]*models.ItemMapping{
		"SW-2002-1": {
			SerialNumber: "SW-2002-1",
			CachedSpec:   types.ItemSpec{ItemType: "Luna", Color: "midnight"},
		},
	}}
	resolver := newTestResolver(t, &stubSpecRepo{}, mappings)

	got, err := resolver.Reconcile(context.Background(), "SW-2002-1", types.ItemSpec{
		ItemType: "Terra", Tuning: "A3",
	})
	require.NoError(t, err)
	assert.Equal(t, "Luna", got.ItemType)
	assert.Equal(t, "midnight", got.Color)
	assert.Equal(t, "A3", got.Tuning)
}

func TestWithTxRebindsSnapshotReader(t *testing.T) {
	// Before the ambient transaction commits, only the tx-bound reader can see
	// mapping rows written in the same run.
	stale := &stubMappingReader{}
	fresh := &stubMappingReader{mappings: map[string]*models.ItemMapping{
		"SW-2004-1": {
			SerialNumber: "SW-2004-1",
			CachedSpec:   types.ItemSpec{ItemType: "Luna", Tuning: "F#3"},
		},
	}}
	resolver := newTestResolver(t, &stubSpecRepo{}, stale)

	bound := resolver.WithTx(&gorm.DB{}, fresh)
	got, err := bound.Reconcile(context.Background(), "SW-2004-1", types.ItemSpec{ItemType: "Terra"})
	require.NoError(t, err)
	assert.Equal(t, "Luna", got.ItemType)
	assert.Equal(t, "F#3", got.Tuning)

	// The original resolver keeps its own reader.
	got, err = resolver.Reconcile(context.Background(), "SW-2004-1", types.ItemSpec{ItemType: "Terra"})
	require.NoError(t, err)
	assert.Equal(t, "Terra", got.ItemType)
}

func TestReconcilePassThrough(t *testing.T) {
	resolver := newTestResolver(t, &stubSpecRepo{}, &stubMappingReader{})

	extracted := types.ItemSpec{ItemType: "Nova", Tuning: "G3", Frequency: "440"}
	got, err := resolver.Reconcile(context.Background(), "SW-2003-1", extracted)
	require.NoError(t, err)
	assert.Equal(t, extracted, got)
}
