package chat

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avelarde/chatline/internal/wire"
)

func TestRegistryKeySetTracksAnnouncements(t *testing.T) {
	r := NewRegistry()
	r.Put(wire.Profile{ID: "a", Name: "alice"})
	r.Put(wire.Profile{ID: "b", Name: "bob"})
	require.Equal(t, 2, r.Len())

	require.True(t, r.Remove("a"))
	require.Equal(t, 1, r.Len())
	_, ok := r.Get("a")
	require.False(t, ok)

	// removing before announcement is a no-op
	require.False(t, r.Remove("a"))
	require.False(t, r.Remove("ghost"))
	require.Equal(t, 1, r.Len())
}

func TestRegistrySnapshotJoinOrder(t *testing.T) {
	r := NewRegistry()
	r.Put(wire.Profile{ID: "c", Name: "carol"})
	r.Put(wire.Profile{ID: "a", Name: "alice"})
	r.Put(wire.Profile{ID: "b", Name: "bob"})

	snap := r.Snapshot()
	require.Equal(t, []string{"c", "a", "b"}, ids(snap))

	// identical between mutations
	require.Equal(t, snap, r.Snapshot())

	// leaving and coming back moves you to the end
	r.Remove("c")
	r.Put(wire.Profile{ID: "c2", Name: "carol"})
	require.Equal(t, []string{"a", "b", "c2"}, ids(r.Snapshot()))
}

func TestRegistryOverwriteKeepsPosition(t *testing.T) {
	r := NewRegistry()
	r.Put(wire.Profile{ID: "a", Name: "alice"})
	r.Put(wire.Profile{ID: "b", Name: "bob"})
	r.Put(wire.Profile{ID: "a", Name: "alicia"})

	snap := r.Snapshot()
	require.Equal(t, []string{"a", "b"}, ids(snap))
	require.Equal(t, "alicia", snap[0].Name)
}

func ids(profiles []wire.Profile) []string {
	out := make([]string, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.ID)
	}
	return out
}
