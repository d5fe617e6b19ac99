package world

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validCatalogYAML = `
items:
  - key: healing-herb
    name: "Healing Herb"
    type: consumable
    rarity: common
    base_price: 5
  - key: iron-ore
    name: "Iron Ore"
    type: material
    rarity: common
    base_price: 12
towns:
  - key: ravenmoor
    name: "Ravenmoor"
    description: |
      A quiet village.
    region: starting_zone
    required_level: 1
    safe_zone: true
    locations:
      - key: ravenmoor.tavern
        name: "Tavern"
        type: social
        icon: "mug"
        map: {x: 10.5, y: 20}
        sort_order: 2
        actions:
          - key: ravenmoor.tavern.rest
            name: "Rest"
            type: timed
            category: rest
            cooldown_seconds: 60
            duration_seconds: 30
            requires:
              currency: 25
              action_points: 1
            rewards:
              currency: 10
              stats:
                health: 20
          - key: ravenmoor.tavern.brew
            name: "Brew"
            type: instant
            category: craft
            repeatable: false
            requires:
              item: healing-herb
            rewards:
              items:
                - item: iron-ore
                  quantity: 2
                  chance: 0.5
                - item: healing-herb
                  quantity: 1
              unlocks:
                - kind: quest
                  target: brewers-guild
              teleport_to: ravenmoor.mine
      - key: ravenmoor.mine
        name: "Mine"
        type: crafting
        sort_order: 1
        active: false
`

func TestLoadContentFromBytes_Valid(t *testing.T) {
	c, err := LoadContentFromBytes([]byte(validCatalogYAML))
	require.NoError(t, err)

	require.Len(t, c.Items, 2)
	require.Len(t, c.Towns, 1)
	require.Len(t, c.Locations, 2)
	require.Len(t, c.Actions, 2)

	town := c.Towns[0]
	assert.Equal(t, KeyID("ravenmoor"), town.ID)
	assert.Equal(t, "A quiet village.", town.Description)
	assert.True(t, town.SafeZone)

	tavern := c.Locations[0]
	assert.Equal(t, town.ID, tavern.TownID)
	assert.Equal(t, LocationSocial, tavern.Type)
	assert.Equal(t, 10.5, tavern.MapX)
	assert.True(t, tavern.Active, "locations default to active")
	assert.False(t, c.Locations[1].Active)

	rest := c.Actions[0]
	assert.Equal(t, tavern.ID, rest.LocationID)
	assert.Equal(t, int64(25), rest.Requirements.Currency)
	assert.Equal(t, 60, rest.Timing.CooldownSeconds)
	assert.True(t, rest.Repeatable, "actions default to repeatable")
	require.NotNil(t, rest.Rewards.Currency)
	assert.Equal(t, int64(10), *rest.Rewards.Currency)
	require.NotNil(t, rest.Rewards.Stats)
	require.NotNil(t, rest.Rewards.Stats.Health)
	assert.Equal(t, 20, *rest.Rewards.Stats.Health)
	assert.Nil(t, rest.Rewards.Stats.Mana)

	brew := c.Actions[1]
	assert.False(t, brew.Repeatable)
	require.NotNil(t, brew.Requirements.ItemID)
	assert.Equal(t, KeyID("healing-herb"), *brew.Requirements.ItemID)
	assert.Equal(t, 1, brew.Requirements.ItemQuantity, "required item quantity defaults to 1")
	require.Len(t, brew.Rewards.Items, 2)
	assert.Equal(t, 0.5, brew.Rewards.Items[0].Chance)
	assert.Equal(t, 1.0, brew.Rewards.Items[1].Chance, "chance defaults to 1.0")
	require.Len(t, brew.Rewards.Unlocks, 1)
	assert.Equal(t, UnlockQuest, brew.Rewards.Unlocks[0].Kind)
	require.NotNil(t, brew.Rewards.TeleportTo)
	assert.Equal(t, KeyID("ravenmoor.mine"), *brew.Rewards.TeleportTo)
}

func TestKeyID(t *testing.T) {
	assert.Equal(t, KeyID("ravenmoor"), KeyID("ravenmoor"), "derived IDs are stable")
	assert.NotEqual(t, KeyID("ravenmoor"), KeyID("ravenmoor.tavern"))

	literal := uuid.New()
	assert.Equal(t, literal, KeyID(literal.String()), "UUID keys are used as is")
}

func TestLoadContentFromBytes_InvalidYAML(t *testing.T) {
	_, err := LoadContentFromBytes([]byte("towns: [unterminated"))
	assert.Error(t, err)
}

func TestLoadContentFromBytes_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing town key": `
towns:
  - name: "Nowhere"
    region: r
`,
		"bad location type": `
towns:
  - key: t
    name: T
    region: r
    locations:
      - key: l
        name: L
        type: palace
`,
		"negative cooldown": `
towns:
  - key: t
    name: T
    region: r
    locations:
      - key: l
        name: L
        type: shop
        actions:
          - key: a
            name: A
            type: instant
            category: shop
            cooldown_seconds: -1
`,
		"chance above one": `
towns:
  - key: t
    name: T
    region: r
    locations:
      - key: l
        name: L
        type: shop
        actions:
          - key: a
            name: A
            type: instant
            category: shop
            rewards:
              items:
                - item: x
                  quantity: 1
                  chance: 1.5
`,
		"negative reward currency": `
towns:
  - key: t
    name: T
    region: r
    locations:
      - key: l
        name: L
        type: shop
        actions:
          - key: a
            name: A
            type: instant
            category: shop
            rewards:
              currency: -5
`,
		"unknown unlock kind": `
towns:
  - key: t
    name: T
    region: r
    locations:
      - key: l
        name: L
        type: shop
        actions:
          - key: a
            name: A
            type: instant
            category: shop
            rewards:
              unlocks:
                - kind: guild
                  target: g
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadContentFromBytes([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalogFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ravenmoor.yaml"), []byte(validCatalogYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("ignored"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))

	cat, err := LoadCatalogFromDir(dir)
	require.NoError(t, err)

	_, ok := cat.Action(KeyID("ravenmoor.tavern.rest"))
	assert.True(t, ok)
}

func TestLoadCatalogFromDir_CrossFileReference(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "items.yml"), []byte(`
items:
  - key: coin-purse
    name: "Coin Purse"
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "town.yaml"), []byte(`
towns:
  - key: t
    name: T
    region: r
    locations:
      - key: l
        name: L
        type: shop
        actions:
          - key: a
            name: A
            type: instant
            category: shop
            rewards:
              items:
                - item: coin-purse
                  quantity: 1
`), 0644))

	cat, err := LoadCatalogFromDir(dir)
	require.NoError(t, err)
	_, ok := cat.Item(KeyID("coin-purse"))
	assert.True(t, ok)
}

func TestLoadCatalogFromDir_DanglingReference(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "town.yaml"), []byte(`
towns:
  - key: t
    name: T
    region: r
    locations:
      - key: l
        name: L
        type: shop
        actions:
          - key: a
            name: A
            type: instant
            category: shop
            rewards:
              teleport_to: nowhere
`), 0644))

	_, err := LoadCatalogFromDir(dir)
	assert.ErrorContains(t, err, "teleports to unknown location")
}

func TestLoadCatalogFromDir_Empty(t *testing.T) {
	_, err := LoadCatalogFromDir(t.TempDir())
	assert.Error(t, err)
}

func TestLoadCatalogFromDir_Missing(t *testing.T) {
	_, err := LoadCatalogFromDir("/nonexistent/catalog")
	assert.Error(t, err)
}

func TestLoadCatalogFromDir_ShippedContent(t *testing.T) {
	cat, err := LoadCatalogFromDir(filepath.Join("..", "..", "..", "content"))
	require.NoError(t, err)

	start, err := cat.StartLocation()
	require.NoError(t, err)
	assert.Equal(t, KeyID("ravenmoor_tavern"), start.ID)

	ride, ok := cat.Action(KeyID("gate_ride_to_dunmere"))
	require.True(t, ok)
	require.NotNil(t, ride.Rewards.TeleportTo)
	harbor, ok := cat.Location(*ride.Rewards.TeleportTo)
	require.True(t, ok)
	assert.Equal(t, KeyID("dunmere"), harbor.TownID)
}
