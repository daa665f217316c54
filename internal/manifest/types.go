package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Section is the mapping shared by the widget root and every platform
// override. Platform overrides cannot nest further platforms.
type Section struct {
	ID                 string `json:"id,omitempty"`
	Version            string `json:"version,omitempty"`
	Name               string `json:"name,omitempty"`
	AndroidVersionCode string `json:"android-versionCode,omitempty"`
	IOSBundleVersion   string `json:"ios-CFBundleVersion,omitempty"`

	Description string   `json:"description,omitempty"`
	Author      *Author  `json:"author,omitempty"`
	Content     *Content `json:"content,omitempty"`
	Access      *Access  `json:"access,omitempty"`

	Collections
}

// Manifest is the authoritative build configuration tree.
type Manifest struct {
	Section

	Platforms Platforms `json:"platforms,omitempty"`
}

// Collections holds the repeated sections shared by the widget root and
// platform overrides.
type Collections struct {
	Preferences map[string]string `json:"preferences,omitempty"`
	Icons       []Image           `json:"icons,omitempty"`
	Splash      []Image           `json:"splash,omitempty"`
	Plugins     Plugins           `json:"plugins,omitempty"`
}

// IsZero reports whether no collection has entries.
func (c Collections) IsZero() bool {
	return len(c.Preferences) == 0 && len(c.Icons) == 0 && len(c.Splash) == 0 && len(c.Plugins) == 0
}

// Author describes the application author.
type Author struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Content names the HTML entry point.
type Content struct {
	Src string `json:"src,omitempty"`
}

// Access is the network access rule.
type Access struct {
	Origin string `json:"origin,omitempty"`
}

// Image is an icon or splash screen entry.
type Image struct {
	Src    string    `json:"src"`
	Width  Dimension `json:"width,omitempty"`
	Height Dimension `json:"height,omitempty"`
}

// Dimension is a pixel size kept in its textual form. JSON numbers are accepted.
type Dimension string

// UnmarshalJSON accepts a string or a number.
func (d *Dimension) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = Dimension(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("dimension must be a string or number: %w", err)
	}
	*d = Dimension(n.String())
	return nil
}

// Int returns the numeric value, or 0 when the dimension is not an integer.
func (d Dimension) Int() int {
	n, err := strconv.Atoi(string(d))
	if err != nil {
		return 0
	}
	return n
}

// Platform is a platform-specific override: a partial manifest without
// platforms of its own.
type Platform Section

// Platforms maps platform name to its override section. In JSON it may also be
// written as an array of bare platform names.
type Platforms map[string]Platform

// UnmarshalJSON accepts a mapping or an array of names.
func (p *Platforms) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			return fmt.Errorf("platforms array must contain names: %w", err)
		}
		*p = NormalizePlatforms(names)
		return nil
	}
	var m map[string]Platform
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*p = m
	return nil
}

// NormalizePlatforms turns a list of bare platform names into a mapping of
// name to empty override.
func NormalizePlatforms(names []string) Platforms {
	if len(names) == 0 {
		return nil
	}
	out := make(Platforms, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		out[n] = Platform{}
	}
	return out
}

// Names returns the platform names in sorted order.
func (p Platforms) Names() []string {
	names := make([]string, 0, len(p))
	for n := range p {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Plugin is a declared plugin dependency.
type Plugin struct {
	Version string            `json:"version,omitempty"`
	Params  map[string]string `json:"params,omitempty"`
}

// UnmarshalJSON accepts a bare version string or an object.
func (p *Plugin) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*p = Plugin{Version: v}
		return nil
	}
	type plain Plugin
	var out plain
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*p = Plugin(out)
	return nil
}

// Plugins maps a plugin locator (registry name or VCS URL) to its declaration.
type Plugins map[string]Plugin

// Names returns the plugin locators in sorted order.
func (p Plugins) Names() []string {
	names := make([]string, 0, len(p))
	for n := range p {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// AllPlugins returns the root plugins merged with every platform's plugins.
// Root declarations win over platform declarations of the same locator.
func (m *Manifest) AllPlugins() Plugins {
	out := Plugins{}
	for _, name := range m.Platforms.Names() {
		for locator, p := range m.Platforms[name].Plugins {
			out[locator] = p
		}
	}
	for locator, p := range m.Plugins {
		out[locator] = p
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
