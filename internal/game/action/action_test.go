package action_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/fieldops/internal/game/action"
)

func TestDefault_HasEveryType(t *testing.T) {
	c := action.Default()
	all := c.All()
	require.Len(t, all, 25)
	for i, typ := range action.Types {
		d, ok := c.Get(typ)
		require.True(t, ok, "missing %q", typ)
		assert.Equal(t, typ, d.Type)
		assert.Equal(t, typ, all[i].Type, "All must follow catalog order")
	}
}

func TestDefault_EntriesValidate(t *testing.T) {
	for _, d := range action.Default().All() {
		assert.NoError(t, d.Validate(), "action %q", d.Type)
	}
}

func TestDefault_CategoryCounts(t *testing.T) {
	c := action.Default()
	assert.Len(t, c.ByCategory(action.Offensive), 8)
	assert.Len(t, c.ByCategory(action.Defensive), 6)
	assert.Len(t, c.ByCategory(action.Tactical), 8)
	assert.Len(t, c.ByCategory(action.Special), 3)
}

func TestDefault_SpotValues(t *testing.T) {
	c := action.Default()

	grenade := c.MustGet(action.GrenadeThrow)
	assert.Equal(t, 2.0, grenade.Effect.DamageMultiplier)
	assert.Equal(t, "explosive", grenade.Requirements.Equipment)
	assert.Equal(t, 5, grenade.Cooldown)
	assert.Equal(t, 35, grenade.EnergyCost)

	breach := c.MustGet(action.Breach)
	assert.True(t, breach.Requirements.AllowsTerrain("urban"))
	assert.False(t, breach.Requirements.AllowsTerrain("forest"))

	basic := c.MustGet(action.BasicAttack)
	assert.Zero(t, basic.Cooldown)
	assert.Zero(t, basic.EnergyCost)
	assert.True(t, basic.Requirements.AllowsTerrain("anything"))
}

func TestGet_Unknown(t *testing.T) {
	_, ok := action.Default().Get("teleport")
	assert.False(t, ok)
	assert.Panics(t, func() { action.Default().MustGet("teleport") })
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]action.Definition{
		"unknown type":      {Type: "teleport", Category: action.Offensive, Scope: action.ScopeEnemy, Name: "x"},
		"unknown category":  {Type: action.Rush, Category: "cosmic", Scope: action.ScopeEnemy, Name: "x"},
		"unknown scope":     {Type: action.Rush, Category: action.Offensive, Scope: "world", Name: "x"},
		"empty name":        {Type: action.Rush, Category: action.Offensive, Scope: action.ScopeEnemy},
		"negative cooldown": {Type: action.Rush, Category: action.Offensive, Scope: action.ScopeEnemy, Name: "x", Cooldown: -1},
		"fraction above 1": {Type: action.Rush, Category: action.Offensive, Scope: action.ScopeEnemy, Name: "x",
			Requirements: action.Requirements{MinHealthFraction: 1.5}},
		"offensive on self": {Type: action.Rush, Category: action.Offensive, Scope: action.ScopeSelf, Name: "x"},
	}
	for name, d := range cases {
		d := d
		assert.Error(t, d.Validate(), name)
	}
}

func TestOverride_ReplacesEntryWithoutMutatingBase(t *testing.T) {
	base := action.Default()
	tuned, err := base.Override([]*action.Definition{{
		Type: action.Rally, Category: action.Tactical, Name: "rallies hard", Scope: action.ScopeAllies,
		Effect: action.Effect{MoraleDelta: 30}, Cooldown: 8, EnergyCost: 30,
	}})
	require.NoError(t, err)

	assert.Equal(t, 30, tuned.MustGet(action.Rally).Effect.MoraleDelta)
	assert.Equal(t, 15, base.MustGet(action.Rally).Effect.MoraleDelta)
	assert.Len(t, tuned.All(), 25)
}

func TestOverride_UnknownTypeIsError(t *testing.T) {
	_, err := action.Default().Override([]*action.Definition{{
		Type: "teleport", Category: action.Tactical, Name: "vanishes", Scope: action.ScopeSelf,
	}})
	assert.Error(t, err)
}

func TestLoadDirectory_ParsesMultiDocumentYAML(t *testing.T) {
	dir := t.TempDir()
	doc := `
type: rush
category: offensive
name: charges
scope: enemy
requirements:
  min_health_fraction: 0.5
effect:
  damage_multiplier: 1.5
  defense_delta: -5
  duration: 1
cooldown: 3
energy_cost: 25
---
type: observe
category: tactical
name: watches
scope: self
effect:
  accuracy_delta: 5
  duration: 1
cooldown: 1
energy_cost: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tuning.yaml"), []byte(doc), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("ignored"), 0644))

	defs, err := action.LoadDirectory(dir)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, action.Rush, defs[0].Type)
	assert.Equal(t, 0.5, defs[0].Requirements.MinHealthFraction)
	assert.Equal(t, -5, defs[0].Effect.DefenseDelta)
	assert.Equal(t, action.Observe, defs[1].Type)
}

func TestLoadDirectory_UnknownFieldIsError(t *testing.T) {
	dir := t.TempDir()
	doc := "type: rush\ncategory: offensive\nname: x\nscope: enemy\nlua_on_apply: boom\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(doc), 0644))
	_, err := action.LoadDirectory(dir)
	assert.Error(t, err)
}

func TestLoadDirectory_InvalidDefinitionIsError(t *testing.T) {
	dir := t.TempDir()
	doc := "type: teleport\ncategory: tactical\nname: x\nscope: self\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(doc), 0644))
	_, err := action.LoadDirectory(dir)
	assert.Error(t, err)
}

func TestLoadDirectory_NonexistentDir_ReturnsError(t *testing.T) {
	_, err := action.LoadDirectory("/nonexistent/path/that/does/not/exist")
	assert.Error(t, err)
}

func TestLoadDirectory_RealContent(t *testing.T) {
	defs, err := action.LoadDirectory("../../../content/actions")
	require.NoError(t, err)
	require.NotEmpty(t, defs)
	c, err := action.Default().Override(defs)
	require.NoError(t, err)
	assert.Len(t, c.All(), 25)
}

func TestProperty_AllowsTerrain(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		allowed := rapid.SliceOfDistinct(rapid.StringMatching(`[a-z]{3,8}`), func(s string) string { return s }).Draw(rt, "allowed")
		probe := rapid.StringMatching(`[a-z]{3,8}`).Draw(rt, "probe")
		r := action.Requirements{Terrain: allowed}

		want := len(allowed) == 0
		for _, a := range allowed {
			if a == probe {
				want = true
			}
		}
		assert.Equal(rt, want, r.AllowsTerrain(probe))
	})
}

func TestProperty_OverridePreservesSize(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		typ := rapid.SampledFrom(action.Types).Draw(rt, "type")
		cost := rapid.IntRange(0, 100).Draw(rt, "cost")
		base := action.Default()
		orig := *base.MustGet(typ)
		o := orig
		o.EnergyCost = cost

		tuned, err := base.Override([]*action.Definition{&o})
		require.NoError(rt, err)
		assert.Len(rt, tuned.All(), len(action.Types))
		assert.Equal(rt, cost, tuned.MustGet(typ).EnergyCost)
		assert.Equal(rt, orig.EnergyCost, base.MustGet(typ).EnergyCost)
	})
}
