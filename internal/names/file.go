package names

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// nameFile is the on-disk layout for offline analysis. Ids are TOML keys and
// therefore strings; decimal and 0x-prefixed hex are both accepted.
type nameFile struct {
	Entities map[string]string `toml:"entities"`
	Signals  map[string]string `toml:"signals"`
	States   map[string]string `toml:"states"`
}

// LoadFile merges a TOML name table into the registry. Wire announcements
// applied later still win; the file is a baseline for dumps captured without
// a live session.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("names: load %s: %w", path, err)
	}
	var f nameFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("names: parse %s: %w", path, err)
	}

	for key, name := range f.Entities {
		id, err := parseID(key)
		if err != nil {
			return fmt.Errorf("names: %s: entity %q: %w", path, key, err)
		}
		r.SetEntity(id, name)
	}
	for key, name := range f.Signals {
		id, err := parseID(key)
		if err != nil {
			return fmt.Errorf("names: %s: signal %q: %w", path, key, err)
		}
		r.SetSignal(id, name)
	}
	for key, name := range f.States {
		id, err := parseID(key)
		if err != nil {
			return fmt.Errorf("names: %s: state %q: %w", path, key, err)
		}
		r.SetState(id, name)
	}
	return nil
}

func parseID(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
