package npc_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/platformer/internal/game/npc"
	"github.com/cory-johannsen/platformer/internal/game/world"
)

type lootTable map[string]world.LootTemplate

func (l lootTable) Lookup(id string) (world.LootTemplate, bool) {
	t, ok := l[id]
	return t, ok
}

var coins = lootTable{
	"small_coin": {ID: "small_coin", Name: "Small Coin", Width: 16, Height: 16},
	"large_coin": {ID: "large_coin", Name: "Large Coin", Width: 32, Height: 32},
}

const boarYAML = `
id: boar
name: Boar
max_health: 150
damage: 20
width: 50
height: 50
detection_range: 250
experience: 40
potential_loot: [small_coin, large_coin, large_coin]
`

func TestLoadTemplateFromBytes(t *testing.T) {
	tmpl, err := npc.LoadTemplateFromBytes([]byte(boarYAML))
	require.NoError(t, err)
	assert.Equal(t, "Boar", tmpl.Name)
	assert.Equal(t, 150, tmpl.MaxHealth)
	assert.Equal(t, 50.0, tmpl.Width)
	assert.Equal(t, []string{"small_coin", "large_coin", "large_coin"}, tmpl.PotentialLoot)
}

func TestTemplate_Resolve_KeepsRepetition(t *testing.T) {
	tmpl, err := npc.LoadTemplateFromBytes([]byte(boarYAML))
	require.NoError(t, err)
	mt, err := tmpl.Resolve(coins)
	require.NoError(t, err)
	require.Len(t, mt.PotentialLoot, 3)
	assert.Equal(t, "Large Coin", mt.PotentialLoot[2].Name)
	assert.Equal(t, 250.0, mt.DetectionRange)
}

func TestTemplate_Resolve_UnknownLoot(t *testing.T) {
	tmpl := &npc.Template{ID: "bee", Name: "Bee", MaxHealth: 10, Width: 32, Height: 32, PotentialLoot: []string{"honey"}}
	_, err := tmpl.Resolve(coins)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "honey")
}

func TestTemplate_Validate(t *testing.T) {
	cases := map[string]npc.Template{
		"missing id":      {Name: "x", MaxHealth: 1, Width: 1, Height: 1},
		"missing name":    {ID: "x", MaxHealth: 1, Width: 1, Height: 1},
		"zero health":     {ID: "x", Name: "x", Width: 1, Height: 1},
		"zero size":       {ID: "x", Name: "x", MaxHealth: 1},
		"negative xp":     {ID: "x", Name: "x", MaxHealth: 1, Width: 1, Height: 1, Experience: -1},
		"negative damage": {ID: "x", Name: "x", MaxHealth: 1, Width: 1, Height: 1, Damage: -1},
	}
	for name, tmpl := range cases {
		tmpl := tmpl
		t.Run(name, func(t *testing.T) {
			assert.Error(t, tmpl.Validate())
		})
	}
}

func TestLoadTemplates_Dir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "boar.yaml"), []byte(boarYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0644))
	templates, err := npc.LoadTemplates(dir)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "boar", templates[0].ID)
}

func TestLoadTemplates_InvalidFileFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: bad\nname: Bad\n"), 0644))
	_, err := npc.LoadTemplates(dir)
	assert.Error(t, err)
}

// Property: any template with positive health and size round-trips through YAML.
func TestProperty_Template_ValidParses(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		hp := rapid.IntRange(1, 10000).Draw(rt, "hp")
		size := rapid.IntRange(1, 200).Draw(rt, "size")
		data := []byte(fmt.Sprintf("id: m\nname: M\nmax_health: %d\nwidth: %d\nheight: %d\n", hp, size, size))
		tmpl, err := npc.LoadTemplateFromBytes(data)
		require.NoError(rt, err)
		assert.Equal(rt, hp, tmpl.MaxHealth)
	})
}
