package models

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeWindowWithin(t *testing.T) {
	compiled := func(t *testing.T, w TimeWindow) *TimeWindow {
		t.Helper()
		require.NoError(t, w.compile())
		return &w
	}

	t.Run("nil window is always open", func(t *testing.T) {
		var w *TimeWindow
		assert.True(t, w.Within(time.Now()))
	})

	t.Run("daytime window", func(t *testing.T) {
		w := compiled(t, TimeWindow{Start: "08:00", End: "18:00"})
		assert.True(t, w.Within(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)))
		assert.True(t, w.Within(time.Date(2026, 3, 2, 17, 59, 0, 0, time.UTC)))
		assert.False(t, w.Within(time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)))
	})

	t.Run("window wrapping midnight", func(t *testing.T) {
		w := compiled(t, TimeWindow{Start: "22:00", End: "02:00"})
		assert.True(t, w.Within(time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)))
		assert.True(t, w.Within(time.Date(2026, 3, 3, 1, 30, 0, 0, time.UTC)))
		assert.False(t, w.Within(time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)))
	})

	t.Run("days and timezone", func(t *testing.T) {
		w := compiled(t, TimeWindow{Start: "09:00", End: "17:00", Days: []string{"Monday"}, Timezone: "Africa/Nairobi"})
		// 07:00 UTC is 10:00 in Nairobi.
		assert.True(t, w.Within(time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)))
		assert.False(t, w.Within(time.Date(2026, 3, 3, 7, 0, 0, 0, time.UTC)))
	})

	t.Run("invalid windows are rejected", func(t *testing.T) {
		for _, w := range []TimeWindow{
			{Start: "8am", End: "18:00"},
			{Start: "08:00", End: "08:00"},
			{Start: "08:00", End: "18:00", Days: []string{"funday"}},
			{Start: "08:00", End: "18:00", Timezone: "Mars/Olympus"},
		} {
			assert.Error(t, w.compile(), "%+v", w)
		}
	})
}

func TestParsePrefixes(t *testing.T) {
	ranges, err := ParsePrefixes([]string{"10.1.2.3/8", " 192.0.2.7 ", "2001:db8::/32"})
	require.NoError(t, err)
	require.Len(t, ranges, 3)
	assert.Equal(t, netip.MustParsePrefix("10.0.0.0/8"), ranges[0])
	assert.Equal(t, netip.MustParsePrefix("192.0.2.7/32"), ranges[1])

	assert.True(t, containsAddr(ranges, netip.MustParseAddr("::ffff:10.9.9.9")), "mapped v4 addresses match v4 ranges")
	assert.False(t, containsAddr(ranges, netip.MustParseAddr("192.0.2.8")))

	_, err = ParsePrefixes([]string{"nope"})
	assert.Error(t, err)
}

func TestPolicySetWildcardFallback(t *testing.T) {
	set, err := NewPolicySet(1, []DLPPolicy{
		{ResourceType: "license", MaxViewsPerHour: 1},
		{ResourceType: WildcardResource, MaxViewsPerHour: 7},
	}, nil, nil)
	require.NoError(t, err)

	p, ok := set.Policy("license")
	require.True(t, ok)
	assert.Equal(t, 1, p.MaxViewsPerHour)

	p, ok = set.Policy("anything_else")
	require.True(t, ok)
	assert.Equal(t, 7, p.MaxViewsPerHour)
}

func TestActionCounterKind(t *testing.T) {
	assert.Equal(t, CounterViews, ActionView.CounterKind())
	assert.Equal(t, CounterViews, ActionPrint.CounterKind())
	assert.Equal(t, CounterExports, ActionExport.CounterKind())
	assert.Equal(t, CounterExports, ActionDownload.CounterKind())
	assert.Equal(t, time.Hour, CounterViews.Window())
	assert.Equal(t, 24*time.Hour, CounterExports.Window())
}

func TestWorkflowActions(t *testing.T) {
	for _, a := range []Action{ActionStart, ActionAdvance, ActionCancel, ActionRetry} {
		assert.True(t, a.IsValid(), a)
		assert.False(t, a.IsDataAccess(), a)
		assert.Equal(t, CounterViews, a.CounterKind(), a)
	}
	for _, a := range []Action{ActionView, ActionExport, ActionPrint, ActionDownload} {
		assert.True(t, a.IsDataAccess(), a)
	}
	assert.False(t, Action("delete").IsValid())
}
