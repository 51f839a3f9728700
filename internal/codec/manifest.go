package codec

import (
	"encoding/json"
	"fmt"
	"os"
)

// Manifest is a schema descriptor for one provider: it maps numeric event
// ids to names so the decoder can label events whose frames omit a name.
type Manifest struct {
	Provider string            `json:"provider"`
	Events   map[uint32]string `json:"events"`
}

// EventName resolves an event id, returning "" when the manifest does not
// know it.
func (m *Manifest) EventName(id uint32) string {
	return m.Events[id]
}

// LoadManifest reads a JSON manifest descriptor from path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if m.Provider == "" {
		return nil, fmt.Errorf("manifest %s has no provider name", path)
	}
	return &m, nil
}

// LoadManifests loads every descriptor in paths, failing on the first bad one.
func LoadManifests(paths []string) ([]*Manifest, error) {
	manifests := make([]*Manifest, 0, len(paths))
	for _, p := range paths {
		m, err := LoadManifest(p)
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}
