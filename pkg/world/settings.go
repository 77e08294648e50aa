package world

import (
	"encoding/json"
	"fmt"
	"os"
)

// Settings is the world-level configuration persisted at <world_dir>/settings.json.
type Settings struct {
	Seed uint32 `json:"seed"`
}

// LoadSettings reads settings.json. Unlike players.json and chunks.dat, this
// file is mandatory: a world directory without it cannot be opened, since
// the seed is load-bearing for every chunk the generator has ever produced.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("world: reading settings: %w", err)
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("world: parsing settings: %w", err)
	}
	return s, nil
}
