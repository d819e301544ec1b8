package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwatts14/respawn/internal/models"
)

const validYAML = `
timezone: America/New_York
bosses:
  - name: Kraken
    kind: interval
    interval_hours: 6
    points: 30
  - name: Harbor Leviathan
    kind: weekly
    points: 80
    slots:
      - day: 6
        time: "20:00"
      - day: 0
        time: "14:00"
`

func TestFromYAML_Valid(t *testing.T) {
	cat, err := FromYAML([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "America/New_York", cat.Location.String())
	assert.Equal(t, 2, cat.Len())

	kraken, ok := cat.Lookup("Kraken")
	require.True(t, ok)
	assert.Equal(t, models.BossKindInterval, kraken.Kind)
	assert.Equal(t, 6, kraken.IntervalHours)
	assert.Equal(t, 30, kraken.Points)

	leviathan, ok := cat.Lookup("harbor leviathan")
	require.True(t, ok)
	assert.Equal(t, models.BossKindWeekly, leviathan.Kind)
	require.Len(t, leviathan.Slots, 2)
	assert.Equal(t, time.Saturday, leviathan.Slots[0].Weekday)
	assert.Equal(t, 20, leviathan.Slots[0].Hour)
	assert.Equal(t, 0, leviathan.Slots[0].Minute)
}

func TestFromYAML_BossOrderPreserved(t *testing.T) {
	cat, err := FromYAML([]byte(validYAML))
	require.NoError(t, err)

	bosses := cat.Bosses()
	require.Len(t, bosses, 2)
	assert.Equal(t, "Kraken", bosses[0].Name)
	assert.Equal(t, "Harbor Leviathan", bosses[1].Name)
}

func TestFromYAML_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{
			name: "zero interval",
			yaml: "bosses:\n  - name: X\n    kind: interval\n    interval_hours: 0\n",
		},
		{
			name: "negative interval",
			yaml: "bosses:\n  - name: X\n    kind: interval\n    interval_hours: -3\n",
		},
		{
			name: "weekly without slots",
			yaml: "bosses:\n  - name: X\n    kind: weekly\n",
		},
		{
			name: "bad slot day",
			yaml: "bosses:\n  - name: X\n    kind: weekly\n    slots:\n      - day: 7\n        time: \"20:00\"\n",
		},
		{
			name: "bad slot time",
			yaml: "bosses:\n  - name: X\n    kind: weekly\n    slots:\n      - day: 1\n        time: \"25:00\"\n",
		},
		{
			name: "unknown kind",
			yaml: "bosses:\n  - name: X\n    kind: monthly\n",
		},
		{
			name: "duplicate names after folding",
			yaml: "bosses:\n  - name: Kraken\n    kind: interval\n    interval_hours: 6\n  - name: kraken\n    kind: interval\n    interval_hours: 8\n",
		},
		{
			name: "empty catalog",
			yaml: "bosses: []\n",
		},
		{
			name: "bad timezone",
			yaml: "timezone: Mars/Olympus\nbosses:\n  - name: X\n    kind: interval\n    interval_hours: 6\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromYAML([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestCanonicalName(t *testing.T) {
	assert.Equal(t, "kraken", CanonicalName("Kraken"))
	assert.Equal(t, "kraken", CanonicalName("kraken #2"))
	assert.Equal(t, "kraken", CanonicalName("KRAKEN #10"))
	assert.Equal(t, "kraken", CanonicalName("  Kraken #3  "))
	assert.Equal(t, "harbor leviathan", CanonicalName("Harbor Leviathan"))

	// Idempotent
	assert.Equal(t, CanonicalName("Kraken #2"), CanonicalName(CanonicalName("Kraken #2")))

	// A counter in the middle of a name is not a suffix
	assert.Equal(t, "boss #2 of doom", CanonicalName("Boss #2 of Doom"))
}
