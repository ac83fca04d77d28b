package config

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"playlist2podcast/registry"
)

// Playlists is the podcasts section. It is either a mapping from podcast name
// to playlist URL, or a plain list of playlist URLs whose titles are probed.
type Playlists struct {
	// Named is true when the section was a mapping.
	Named   bool
	Entries []registry.Entry
}

// UnmarshalYAML accepts a mapping or a sequence. Mapping order is preserved.
func (p *Playlists) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		p.Named = true
		p.Entries = make([]registry.Entry, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var name, url string
			if err := node.Content[i].Decode(&name); err != nil {
				return fmt.Errorf("podcasts: line %d: %w", node.Content[i].Line, err)
			}
			if err := node.Content[i+1].Decode(&url); err != nil {
				return fmt.Errorf("podcasts[%s]: line %d: %w", name, node.Content[i+1].Line, err)
			}
			p.Entries = append(p.Entries, registry.Entry{Name: name, URL: url})
		}
	case yaml.SequenceNode:
		p.Named = false
		p.Entries = make([]registry.Entry, 0, len(node.Content))
		for _, item := range node.Content {
			var url string
			if err := item.Decode(&url); err != nil {
				return fmt.Errorf("podcasts: line %d: %w", item.Line, err)
			}
			p.Entries = append(p.Entries, registry.Entry{URL: url})
		}
	default:
		return fmt.Errorf("podcasts: line %d: expected a mapping or a list", node.Line)
	}
	return nil
}

// UnmarshalTOML accepts a table or an array. TOML tables are unordered, so
// named entries are sorted by name.
func (p *Playlists) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case map[string]any:
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		sort.Strings(names)

		p.Named = true
		p.Entries = make([]registry.Entry, 0, len(names))
		for _, name := range names {
			url, ok := v[name].(string)
			if !ok {
				return fmt.Errorf("podcasts[%s]: expected a playlist URL string", name)
			}
			p.Entries = append(p.Entries, registry.Entry{Name: name, URL: url})
		}
	case []any:
		p.Named = false
		p.Entries = make([]registry.Entry, 0, len(v))
		for i, item := range v {
			url, ok := item.(string)
			if !ok {
				return fmt.Errorf("podcasts[%d]: expected a playlist URL string", i)
			}
			p.Entries = append(p.Entries, registry.Entry{URL: url})
		}
	default:
		return fmt.Errorf("podcasts: expected a table or an array, got %T", data)
	}
	return nil
}

// DateBound is a yt-dlp date: YYYYMMDD or a relative expression such as
// now-2weeks. Unquoted YYYYMMDD values decode as numbers in both YAML and
// TOML, so the raw scalar is kept.
type DateBound string

// UnmarshalYAML keeps the scalar text.
func (d *DateBound) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("dateafter: line %d: expected a scalar", node.Line)
	}
	*d = DateBound(node.Value)
	return nil
}

// UnmarshalTOML accepts a string or an integer.
func (d *DateBound) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case string:
		*d = DateBound(v)
	case int64:
		*d = DateBound(fmt.Sprintf("%d", v))
	default:
		return fmt.Errorf("dateafter: expected a string or an integer, got %T", data)
	}
	return nil
}

// String returns the bound as passed to yt-dlp.
func (d DateBound) String() string { return string(d) }
