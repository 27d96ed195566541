package alerts

import (
	"testing"
	"time"

	"github.com/benmeehan/route-sentinel/internal/mocks"
	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func newTestSynchronizer(hidden ...models.AlertType) (*Synchronizer, *mocks.RecordingPresenter) {
	presenter := new(mocks.RecordingPresenter)
	s := NewSynchronizer(NewCache(), NewVisibility(hidden...), presenter, 10*time.Minute, nil, zerolog.Nop())
	s.now = func() time.Time { return fixedNow }
	return s, presenter
}

func keys(alerts []models.Alert) []string {
	out := make([]string, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.Key)
	}
	return out
}

func TestSynchronizer_SnapshotReplacesCache(t *testing.T) {
	s, _ := newTestSynchronizer()

	var received [][]models.Alert
	s.AddConsumer(func(alerts []models.Alert) { received = append(received, alerts) })

	s.Apply([]models.Alert{
		{Key: "a", Type: models.AlertFlood, Latitude: 14, Longitude: 121},
		{Key: "b", Type: models.AlertFire, Latitude: 14, Longitude: 121},
	})
	s.Apply([]models.Alert{
		{Key: "c", Type: models.AlertCrash, Latitude: 14, Longitude: 121},
	})

	assert.Equal(t, 1, s.cache.Len())
	_, ok := s.cache.Get("a")
	assert.False(t, ok)

	require.Len(t, received, 2)
	assert.ElementsMatch(t, []string{"a", "b"}, keys(received[0]))
	assert.Equal(t, []string{"c"}, keys(received[1]))
}

func TestSynchronizer_EmptySnapshotClears(t *testing.T) {
	s, presenter := newTestSynchronizer()

	s.Apply([]models.Alert{{Key: "a", Type: models.AlertFlood, Latitude: 14, Longitude: 121}})
	s.Apply(nil)

	assert.Zero(t, s.cache.Len())
	markers := presenter.LastMarkers()
	assert.Empty(t, markers.Markers)
	assert.Zero(t, markers.BadgeCount)
}

func TestSynchronizer_VisibilityAndBadge(t *testing.T) {
	s, presenter := newTestSynchronizer(models.AlertTraffic)
	past := fixedNow.Add(-time.Minute)

	s.Apply([]models.Alert{
		{Key: "flood", Type: models.AlertFlood, Latitude: 14, Longitude: 121},
		{Key: "traffic", Type: models.AlertTraffic, Latitude: 14, Longitude: 121},
		{Key: "closed", Type: models.AlertNotPassable, Latitude: 14, Longitude: 121, Authority: true, ExpiresAt: &past},
	})

	markers := presenter.LastMarkers()
	require.Len(t, markers.Markers, 1)
	assert.Equal(t, "flood", markers.Markers[0].Alert.Key)
	assert.Equal(t, 2, markers.BadgeCount)
	assert.Equal(t, []string{"flood"}, keys(s.Visible()))
}

func TestSynchronizer_SetHazardTypeVisible(t *testing.T) {
	s, presenter := newTestSynchronizer()
	s.Apply([]models.Alert{
		{Key: "quake", Type: models.AlertEarthquake, Latitude: 14, Longitude: 121},
		{Key: "fire", Type: models.AlertFire, Latitude: 14, Longitude: 121},
	})
	require.Len(t, presenter.Marks, 1)

	require.NoError(t, s.SetHazardTypeVisible(models.AlertEarthquake, false))
	markers := presenter.LastMarkers()
	assert.Equal(t, []string{"fire"}, markerKeys(markers))
	assert.Equal(t, 2, markers.BadgeCount)

	// No change, no republish.
	require.NoError(t, s.SetHazardTypeVisible(models.AlertEarthquake, false))
	assert.Len(t, presenter.Marks, 2)

	require.NoError(t, s.SetHazardTypeVisible(models.AlertEarthquake, true))
	assert.ElementsMatch(t, []string{"quake", "fire"}, markerKeys(presenter.LastMarkers()))

	assert.ErrorIs(t, s.SetHazardTypeVisible("Meteor", false), ErrUnknownAlertType)
}

func markerKeys(m models.AlertMarkers) []string {
	out := make([]string, 0, len(m.Markers))
	for _, marker := range m.Markers {
		out = append(out, marker.Alert.Key)
	}
	return out
}

func TestBuildMarkers(t *testing.T) {
	resolved := fixedNow.Add(-3*time.Minute - 30*time.Second)
	longAgo := fixedNow.Add(-20 * time.Minute)

	markers := BuildMarkers([]models.Alert{
		{Key: "resolved", Type: models.AlertRoadwork, ResolvedAt: &resolved},
		{Key: "overdue", Type: models.AlertFlood, ResolvedAt: &longAgo},
		{Key: "typhoon", Type: models.AlertTyphoon},
	}, NewVisibility(), 10*time.Minute, fixedNow)

	require.Len(t, markers.Markers, 3)
	byKey := map[string]models.AlertMarker{}
	for _, m := range markers.Markers {
		byKey[m.Alert.Key] = m
	}

	assert.True(t, byKey["resolved"].Resolved)
	assert.Equal(t, 7, byKey["resolved"].MinutesToPurge)
	assert.Zero(t, byKey["overdue"].MinutesToPurge)
	assert.True(t, byKey["typhoon"].Calamity)
	assert.False(t, byKey["typhoon"].Resolved)
	assert.Equal(t, 3, markers.BadgeCount)
	assert.Equal(t, fixedNow, markers.UpdatedAt)
}

func TestCache(t *testing.T) {
	c := NewCache()
	older := fixedNow.Add(-time.Hour)

	c.Replace([]models.Alert{
		{Key: "old", CreatedAt: older},
		{Key: "new", CreatedAt: fixedNow},
		{Key: ""},
		{Key: "dup", Message: "first"},
		{Key: "dup", Message: "second"},
	}, fixedNow)

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"new", "old", "dup"}, keys(c.Snapshot()))
	dup, ok := c.Get("dup")
	require.True(t, ok)
	assert.Equal(t, "second", dup.Message)
	assert.Equal(t, fixedNow, c.UpdatedAt())
}

func TestVisibility(t *testing.T) {
	v := NewVisibility(models.AlertCrash)

	assert.False(t, v.Visible(models.AlertCrash))
	assert.True(t, v.Visible(models.AlertFire))

	assert.True(t, v.SetVisible(models.AlertFire, false))
	assert.False(t, v.SetVisible(models.AlertFire, false))
	assert.Equal(t, []models.AlertType{models.AlertCrash, models.AlertFire}, v.Hidden())

	assert.True(t, v.SetVisible(models.AlertCrash, true))
	assert.False(t, v.SetVisible(models.AlertCrash, true))
	assert.True(t, v.Visible(models.AlertCrash))
}
