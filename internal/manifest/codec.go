package manifest

import (
	"bytes"

	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
)

const (
	msgMalformedManifest = "malformed manifest"
	msgMalformedXML      = "malformed XML"
)

// Sentinel conditions; match with errors.Is.
var (
	ErrMalformedManifest = errors.ManifestError(msgMalformedManifest).Build()
	ErrMalformedXML      = errors.ManifestError(msgMalformedXML).Build()
)

var rootAttributes = []string{"id", "version", "android-versionCode", "ios-CFBundleVersion"}

// Serialize renders m as config.xml text. It fails with ErrMalformedManifest
// when a required identity field is missing.
func Serialize(m *Manifest) ([]byte, error) {
	if m == nil {
		return nil, errors.ManifestError(msgMalformedManifest).
			WithCause(errors.ValidationError("manifest is nil").Build()).
			Build()
	}
	if err := Validate(m); err != nil {
		return nil, errors.ManifestError(msgMalformedManifest).WithCause(err).Build()
	}

	root := newNode(rootElement,
		attr("xmlns", NamespaceWidgets),
		attr("xmlns:cdv", NamespaceCordova),
		attr("xmlns:gap", NamespaceGap),
	)
	encodeSection(root, m.Section)
	for _, name := range m.Platforms.Names() {
		el := root.add(newNode("platform", attr("name", name)))
		encodeSection(el, Section(m.Platforms[name]))
	}

	data, err := writeTree(root)
	if err != nil {
		return nil, errors.ManifestError(msgMalformedManifest).WithCause(err).Build()
	}
	return data, nil
}

// encodeSection writes the shared mapping onto el. The root and every
// platform element use it.
func encodeSection(el *node, s Section) {
	for _, name := range rootAttributes {
		el.setAttr(name, s.attr(name))
	}

	textChild(el, "name", s.Name)
	textChild(el, "description", s.Description)

	if a := s.Author; a != nil {
		author := el.add(newNode("author"))
		author.setAttr("email", a.Email)
		author.setAttr("href", a.URL)
		author.text = a.Name
	}
	if c := s.Content; c != nil {
		el.add(newNode("content")).setAttr("src", c.Src)
	}
	if a := s.Access; a != nil {
		el.add(newNode("access")).setAttr("origin", a.Origin)
	}

	encodeCollections(el, s.Collections)
}

func textChild(parent *node, name, text string) {
	if text == "" {
		return
	}
	parent.add(newNode(name)).text = text
}

func encodeCollections(parent *node, c Collections) {
	for _, name := range sortedKeys(c.Preferences) {
		parent.add(newNode("preference", attr("name", name), attr("value", c.Preferences[name])))
	}
	encodeImages(parent, "icon", c.Icons)
	encodeImages(parent, "splash", c.Splash)
	for _, name := range c.Plugins.Names() {
		p := c.Plugins[name]
		el := parent.add(newNode("gap:plugin", attr("name", name)))
		el.setAttr("version", p.Version)
		for _, param := range sortedKeys(p.Params) {
			el.add(newNode("param", attr("name", param), attr("value", p.Params[param])))
		}
	}
}

func encodeImages(parent *node, element string, images []Image) {
	for _, img := range images {
		el := parent.add(newNode(element, attr("src", img.Src)))
		el.setAttr("width", string(img.Width))
		el.setAttr("height", string(img.Height))
	}
}

func (s *Section) attr(name string) string {
	switch name {
	case "id":
		return s.ID
	case "version":
		return s.Version
	case "android-versionCode":
		return s.AndroidVersionCode
	case "ios-CFBundleVersion":
		return s.IOSBundleVersion
	}
	return ""
}

func (s *Section) setAttr(name, value string) {
	switch name {
	case "id":
		s.ID = value
	case "version":
		s.Version = value
	case "android-versionCode":
		s.AndroidVersionCode = value
	case "ios-CFBundleVersion":
		s.IOSBundleVersion = value
	}
}

// Deserialize parses config.xml text. Unknown elements are ignored and absent
// sections stay nil. It fails with ErrMalformedXML on malformed markup.
func Deserialize(data []byte) (*Manifest, error) {
	root, err := parseTree(bytes.NewReader(data))
	if err != nil {
		return nil, errors.ManifestError(msgMalformedXML).WithCause(err).Build()
	}
	if root.local != rootElement || !root.inNamespace(NamespaceWidgets) {
		return nil, errors.ManifestError(msgMalformedXML).
			WithContext("root", root.local).
			Build()
	}

	m := &Manifest{Section: decodeSection(root)}
	for _, el := range root.find(NamespaceWidgets, "platform") {
		name := el.attr("name")
		if name == "" {
			continue
		}
		if m.Platforms == nil {
			m.Platforms = Platforms{}
		}
		m.Platforms[name] = Platform(decodeSection(el))
	}
	return m, nil
}

// decodeSection reads the shared mapping from el.
func decodeSection(el *node) Section {
	var s Section
	for _, name := range rootAttributes {
		s.setAttr(name, el.attr(name))
	}
	if c := el.first(NamespaceWidgets, "name"); c != nil {
		s.Name = c.text
	}
	if c := el.first(NamespaceWidgets, "description"); c != nil {
		s.Description = c.text
	}
	if c := el.first(NamespaceWidgets, "author"); c != nil {
		s.Author = &Author{Name: c.text, Email: c.attr("email"), URL: c.attr("href")}
	}
	if c := el.first(NamespaceWidgets, "content"); c != nil {
		s.Content = &Content{Src: c.attr("src")}
	}
	if c := el.first(NamespaceWidgets, "access"); c != nil {
		s.Access = &Access{Origin: c.attr("origin")}
	}
	s.Collections = decodeCollections(el)
	return s
}

func decodeCollections(parent *node) Collections {
	var c Collections
	for _, el := range parent.find(NamespaceWidgets, "preference") {
		name := el.attr("name")
		if name == "" {
			continue
		}
		if c.Preferences == nil {
			c.Preferences = map[string]string{}
		}
		c.Preferences[name] = el.attr("value")
	}
	c.Icons = decodeImages(parent, "icon")
	c.Splash = decodeImages(parent, "splash")
	for _, el := range parent.find(NamespaceGap, "plugin") {
		name := el.attr("name")
		if name == "" {
			continue
		}
		if c.Plugins == nil {
			c.Plugins = Plugins{}
		}
		p := Plugin{Version: el.attr("version")}
		for _, param := range el.find(NamespaceWidgets, "param") {
			pn := param.attr("name")
			if pn == "" {
				continue
			}
			if p.Params == nil {
				p.Params = map[string]string{}
			}
			p.Params[pn] = param.attr("value")
		}
		c.Plugins[name] = p
	}
	return c
}

func decodeImages(parent *node, element string) []Image {
	var out []Image
	for _, el := range parent.find(NamespaceWidgets, element) {
		out = append(out, Image{
			Src:    el.attr("src"),
			Width:  Dimension(el.attr("width")),
			Height: Dimension(el.attr("height")),
		})
	}
	return out
}
