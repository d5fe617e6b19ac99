package world

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ContentNamespace derives stable IDs for catalog keys that are not UUIDs, so
// re-importing the same files updates rows instead of duplicating them.
var ContentNamespace = uuid.MustParse("6f1c2a52-8d5e-4b8e-9d55-2f0b6a7c4e11")

// KeyID maps a content key to an ID. A key that already parses as a UUID is
// used as is; any other key yields a name-based (SHA-1) UUID.
func KeyID(key string) uuid.UUID {
	if id, err := uuid.Parse(key); err == nil {
		return id
	}
	return uuid.NewSHA1(ContentNamespace, []byte(key))
}

// yamlCatalogFile is the top-level YAML structure for catalog files.
type yamlCatalogFile struct {
	Items []yamlItem `yaml:"items"`
	Towns []yamlTown `yaml:"towns"`
}

type yamlItem struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
	Rarity      string `yaml:"rarity"`
	BasePrice   int64  `yaml:"base_price"`
}

type yamlTown struct {
	Key           string         `yaml:"key"`
	Name          string         `yaml:"name"`
	Description   string         `yaml:"description"`
	Region        string         `yaml:"region"`
	RequiredLevel int            `yaml:"required_level"`
	MapImage      string         `yaml:"map_image"`
	SafeZone      bool           `yaml:"safe_zone"`
	Locations     []yamlLocation `yaml:"locations"`
}

type yamlLocation struct {
	Key           string       `yaml:"key"`
	Name          string       `yaml:"name"`
	Description   string       `yaml:"description"`
	Icon          string       `yaml:"icon"`
	Type          string       `yaml:"type"`
	Map           yamlPoint    `yaml:"map"`
	RequiredLevel int          `yaml:"required_level"`
	RequiredQuest string       `yaml:"required_quest"`
	Active        *bool        `yaml:"active"`
	SortOrder     int          `yaml:"sort_order"`
	Actions       []yamlAction `yaml:"actions"`
}

type yamlPoint struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type yamlAction struct {
	Key             string           `yaml:"key"`
	Name            string           `yaml:"name"`
	Description     string           `yaml:"description"`
	Icon            string           `yaml:"icon"`
	Type            string           `yaml:"type"`
	Category        string           `yaml:"category"`
	Requires        yamlRequirements `yaml:"requires"`
	CooldownSeconds int              `yaml:"cooldown_seconds"`
	DurationSeconds int              `yaml:"duration_seconds"`
	Rewards         yamlRewards      `yaml:"rewards"`
	Repeatable      *bool            `yaml:"repeatable"`
	Active          *bool            `yaml:"active"`
	SortOrder       int              `yaml:"sort_order"`
}

type yamlRequirements struct {
	Level        int    `yaml:"level"`
	Currency     int64  `yaml:"currency"`
	Item         string `yaml:"item"`
	ItemQuantity int    `yaml:"item_quantity"`
	ActionPoints int    `yaml:"action_points"`
}

type yamlRewards struct {
	Currency   *int64           `yaml:"currency"`
	Experience *int64           `yaml:"experience"`
	Items      []yamlItemReward `yaml:"items"`
	Stats      *StatChanges     `yaml:"stats"`
	Unlocks    []yamlUnlock     `yaml:"unlocks"`
	TeleportTo string           `yaml:"teleport_to"`
}

type yamlItemReward struct {
	Item     string   `yaml:"item"`
	Quantity int      `yaml:"quantity"`
	Chance   *float64 `yaml:"chance"`
}

type yamlUnlock struct {
	Kind   string `yaml:"kind"`
	Target string `yaml:"target"`
}

// LoadContentFromFile reads a single catalog YAML file.
//
// Precondition: path must point to a catalog YAML file.
// Postcondition: Returns the file's content with every field-level invariant
// checked; cross-file references are checked later by NewCatalog.
func LoadContentFromFile(path string) (Content, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Content{}, fmt.Errorf("reading catalog file %s: %w", path, err)
	}
	return LoadContentFromBytes(data)
}

// LoadContentFromBytes parses catalog content from YAML bytes.
func LoadContentFromBytes(data []byte) (Content, error) {
	var file yamlCatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Content{}, fmt.Errorf("parsing catalog YAML: %w", err)
	}
	content, err := convertYAMLCatalog(file)
	if err != nil {
		return Content{}, fmt.Errorf("converting catalog: %w", err)
	}
	return content, nil
}

// LoadCatalogFromDir loads every YAML file in dir and builds a validated Catalog.
//
// Precondition: dir must be a valid directory path.
// Postcondition: Returns a Catalog spanning all files, or the first error encountered.
func LoadCatalogFromDir(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading catalog directory %s: %w", dir, err)
	}

	var content Content
	files := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		c, err := LoadContentFromFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loading catalog from %s: %w", name, err)
		}
		content.Merge(c)
		files++
	}

	if files == 0 {
		return nil, fmt.Errorf("no catalog files found in %s", dir)
	}
	return NewCatalog(content)
}

func convertYAMLCatalog(f yamlCatalogFile) (Content, error) {
	var c Content
	for _, yi := range f.Items {
		if yi.Key == "" {
			return Content{}, fmt.Errorf("item %q: key must not be empty", yi.Name)
		}
		c.Items = append(c.Items, &Item{
			ID:          KeyID(yi.Key),
			Name:        yi.Name,
			Description: strings.TrimSpace(yi.Description),
			Type:        yi.Type,
			Rarity:      yi.Rarity,
			BasePrice:   yi.BasePrice,
		})
	}
	for _, yt := range f.Towns {
		if yt.Key == "" {
			return Content{}, fmt.Errorf("town %q: key must not be empty", yt.Name)
		}
		town := &Town{
			ID:            KeyID(yt.Key),
			Name:          yt.Name,
			Description:   strings.TrimSpace(yt.Description),
			Region:        yt.Region,
			RequiredLevel: yt.RequiredLevel,
			MapImage:      yt.MapImage,
			SafeZone:      yt.SafeZone,
		}
		c.Towns = append(c.Towns, town)
		for _, yl := range yt.Locations {
			if yl.Key == "" {
				return Content{}, fmt.Errorf("location %q: key must not be empty", yl.Name)
			}
			loc := &Location{
				ID:            KeyID(yl.Key),
				TownID:        town.ID,
				Name:          yl.Name,
				Description:   strings.TrimSpace(yl.Description),
				Icon:          yl.Icon,
				Type:          LocationType(yl.Type),
				MapX:          yl.Map.X,
				MapY:          yl.Map.Y,
				RequiredLevel: yl.RequiredLevel,
				Active:        boolOr(yl.Active, true),
				SortOrder:     yl.SortOrder,
			}
			if yl.RequiredQuest != "" {
				id := KeyID(yl.RequiredQuest)
				loc.RequiredQuestID = &id
			}
			if err := loc.Validate(); err != nil {
				return Content{}, err
			}
			c.Locations = append(c.Locations, loc)
			for _, ya := range yl.Actions {
				action, err := convertYAMLAction(loc.ID, ya)
				if err != nil {
					return Content{}, err
				}
				c.Actions = append(c.Actions, action)
			}
		}
		if err := town.Validate(); err != nil {
			return Content{}, err
		}
	}
	for _, it := range c.Items {
		if err := it.Validate(); err != nil {
			return Content{}, err
		}
	}
	return c, nil
}

func convertYAMLAction(locationID uuid.UUID, ya yamlAction) (*Action, error) {
	if ya.Key == "" {
		return nil, fmt.Errorf("action %q: key must not be empty", ya.Name)
	}
	a := &Action{
		ID:          KeyID(ya.Key),
		LocationID:  locationID,
		Name:        ya.Name,
		Description: strings.TrimSpace(ya.Description),
		Icon:        ya.Icon,
		Type:        ActionType(ya.Type),
		Category:    ActionCategory(ya.Category),
		Requirements: Requirements{
			Level:            ya.Requires.Level,
			Currency:         ya.Requires.Currency,
			ItemQuantity:     ya.Requires.ItemQuantity,
			ActionPointsCost: ya.Requires.ActionPoints,
		},
		Timing: Timing{
			CooldownSeconds: ya.CooldownSeconds,
			DurationSeconds: ya.DurationSeconds,
		},
		Rewards: RewardSpec{
			Currency:   ya.Rewards.Currency,
			Experience: ya.Rewards.Experience,
			Stats:      ya.Rewards.Stats,
		},
		Repeatable: boolOr(ya.Repeatable, true),
		Active:     boolOr(ya.Active, true),
		SortOrder:  ya.SortOrder,
	}
	if ya.Requires.Item != "" {
		id := KeyID(ya.Requires.Item)
		a.Requirements.ItemID = &id
		if a.Requirements.ItemQuantity == 0 {
			a.Requirements.ItemQuantity = 1
		}
	}
	for _, yr := range ya.Rewards.Items {
		chance := 1.0
		if yr.Chance != nil {
			chance = *yr.Chance
		}
		a.Rewards.Items = append(a.Rewards.Items, ItemReward{
			ItemID:   KeyID(yr.Item),
			Quantity: yr.Quantity,
			Chance:   chance,
		})
	}
	for _, yu := range ya.Rewards.Unlocks {
		a.Rewards.Unlocks = append(a.Rewards.Unlocks, UnlockReward{
			Kind:     UnlockKind(yu.Kind),
			TargetID: KeyID(yu.Target),
		})
	}
	if ya.Rewards.TeleportTo != "" {
		id := KeyID(ya.Rewards.TeleportTo)
		a.Rewards.TeleportTo = &id
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
