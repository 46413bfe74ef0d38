package room_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/platformer/internal/game/room"
	"github.com/cory-johannsen/platformer/internal/game/world"
)

const fieldYAML = `
name: field
map: field.tmj
spawns:
  - monster: snail
    interval_ms: 5000
    max: 4
portals:
  - id: to-village
    x: 16
    y: 200
    width: 32
    height: 64
    target_room: village
    target_x: 900
    target_y: 200
`

func TestLoadDefinitionFromBytes(t *testing.T) {
	d, err := room.LoadDefinitionFromBytes([]byte(fieldYAML))
	require.NoError(t, err)
	assert.Equal(t, "field", d.Name)
	require.Len(t, d.Spawns, 1)
	assert.Equal(t, int64(5000), d.Spawns[0].IntervalMillis)
	require.Len(t, d.Portals, 1)
	assert.Equal(t, "village", d.Portals[0].TargetRoom)
	assert.Equal(t, 900.0, d.Portals[0].TargetX)
}

func TestLoadDefinitionFromBytes_Invalid(t *testing.T) {
	cases := map[string]string{
		"no name":        "map: a.tmj\n",
		"no map":         "name: a\n",
		"zero max":       "name: a\nmap: a.tmj\nspawns:\n  - monster: snail\n    max: 0\n",
		"negative delay": "name: a\nmap: a.tmj\nspawns:\n  - monster: snail\n    max: 1\n    interval_ms: -1\n",
		"portal target":  "name: a\nmap: a.tmj\nportals:\n  - id: p\n",
		"dup portal":     "name: a\nmap: a.tmj\nportals:\n  - id: p\n    target_room: b\n  - id: p\n    target_room: c\n",
		"bad yaml":       "name: [",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := room.LoadDefinitionFromBytes([]byte(src))
			assert.Error(t, err)
		})
	}
}

func TestLoadDefinitions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "field.yaml"), []byte(fieldYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "village.yaml"), []byte("name: village\nmap: village.tmj\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	defs, err := room.LoadDefinitions(dir)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "field", defs[0].Name)
	assert.Equal(t, "village", defs[1].Name)
}

func TestLoadDefinitions_DuplicateName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(fieldYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(fieldYAML), 0o644))
	_, err := room.LoadDefinitions(dir)
	assert.ErrorContains(t, err, "duplicate room")
}

func TestCheckPortalTargets(t *testing.T) {
	village := &room.Definition{Name: "village", Map: "village.tmj", Portals: []world.Portal{{ID: "to_field", TargetRoom: "field"}}}
	field := &room.Definition{Name: "field", Map: "field.tmj", Portals: []world.Portal{{ID: "to_village", TargetRoom: "village"}}}
	assert.NoError(t, room.CheckPortalTargets([]*room.Definition{village, field}))

	err := room.CheckPortalTargets([]*room.Definition{village})
	assert.ErrorIs(t, err, room.ErrUnknownRoom)
	assert.Contains(t, err.Error(), "to_field")
}
