package manifest

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
)

func sampleManifest() *Manifest {
	return &Manifest{Section: Section{
		ID:                 "com.example.camera",
		Version:            "1.2.0",
		Name:               "Camera & Co",
		AndroidVersionCode: "12",
		IOSBundleVersion:   "1.2.0.1",
		Description:        "Takes <pictures>",
		Author:             &Author{Name: "Jane Doe", Email: "jane@example.com", URL: "https://example.com"},
		Content:            &Content{Src: "index.html"},
		Access:             &Access{Origin: "*"},
		Collections: Collections{
			Preferences: map[string]string{"Fullscreen": "true", "Orientation": "portrait"},
			Icons: []Image{
				{Src: "res/icon-57.png", Width: "57", Height: "57"},
				{Src: "res/icon.png"},
			},
			Splash: []Image{{Src: "res/splash.png", Width: "320", Height: "480"}},
			Plugins: Plugins{
				"org.apache.cordova.camera": {Version: "0.3.0"},
				"https://github.com/example/push.git": {
					Version: "v2",
					Params:  map[string]string{"API_KEY": "secret", "SENDER": "42"},
				},
			},
		}},
		Platforms: Platforms{
			"android": {
				Name:        "Camera for Android",
				Description: "Android build",
				Content:     &Content{Src: "android.html"},
				Collections: Collections{
					Preferences: map[string]string{"android-minSdkVersion": "19"},
					Icons:       []Image{{Src: "res/android/ldpi.png", Width: "36", Height: "36"}},
				},
			},
			"ios": {},
		},
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	m := sampleManifest()

	data, err := Serialize(m)
	require.NoError(t, err)

	got, err := Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestSerializeVocabulary(t *testing.T) {
	data, err := Serialize(sampleManifest())
	require.NoError(t, err)
	text := string(data)

	assert.True(t, strings.HasPrefix(text, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, text, `<widget xmlns="http://www.w3.org/ns/widgets" xmlns:cdv="http://cordova.apache.org/ns/1.0" xmlns:gap="http://phonegap.com/ns/1.0" id="com.example.camera" version="1.2.0" android-versionCode="12" ios-CFBundleVersion="1.2.0.1">`)
	assert.Contains(t, text, `<name>Camera &amp; Co</name>`)
	assert.Contains(t, text, `<author email="jane@example.com" href="https://example.com">Jane Doe</author>`)
	assert.Contains(t, text, `<preference name="Fullscreen" value="true"></preference>`)
	assert.Contains(t, text, `<gap:plugin name="org.apache.cordova.camera" version="0.3.0"></gap:plugin>`)
	assert.Contains(t, text, `<param name="API_KEY" value="secret"></param>`)
	assert.Contains(t, text, `<platform name="android">`)
}

func TestSerializeIsDeterministic(t *testing.T) {
	first, err := Serialize(sampleManifest())
	require.NoError(t, err)
	for range 5 {
		again, err := Serialize(sampleManifest())
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestSerializeRequiresIdentity(t *testing.T) {
	for _, field := range []string{"id", "name", "version"} {
		t.Run(field, func(t *testing.T) {
			m := sampleManifest()
			switch field {
			case "id":
				m.ID = ""
			case "name":
				m.Name = ""
			case "version":
				m.Version = "  "
			}
			_, err := Serialize(m)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, ErrMalformedManifest))
			assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
			assert.Contains(t, err.Error(), field)
		})
	}
}

func TestSerializeOptionalFieldsAbsent(t *testing.T) {
	m := &Manifest{Section: Section{ID: "a.b", Name: "n", Version: "1"}}
	data, err := Serialize(m)
	require.NoError(t, err)

	got, err := Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, m, got)
	assert.Nil(t, got.Author)
	assert.Nil(t, got.Preferences)
	assert.Nil(t, got.Platforms)
	assert.Nil(t, got.Plugins)
}

func TestDeserializeIgnoresUnknownElements(t *testing.T) {
	doc := `<?xml version="1.0"?>
<widget xmlns="http://www.w3.org/ns/widgets" xmlns:gap="http://phonegap.com/ns/1.0" id="io.x" version="2.0">
  <name>X</name>
  <feature name="http://api.phonegap.com/1.0/device"/>
  <gap:splash src="ignored.png"/>
  <preference name="A" value="1"/>
  <preference value="nameless"/>
  <gap:plugin name="p" version="1.0">
    <param name="k" value="v"/>
    <unknown/>
  </gap:plugin>
</widget>`
	m, err := Deserialize([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "io.x", m.ID)
	assert.Equal(t, map[string]string{"A": "1"}, m.Preferences)
	assert.Nil(t, m.Splash)
	assert.Equal(t, Plugins{"p": {Version: "1.0", Params: map[string]string{"k": "v"}}}, m.Plugins)
}

func TestDeserializeUnqualifiedDocument(t *testing.T) {
	doc := `<widget id="io.y" version="1"><name>Y</name><platform name="ios"><preference name="p" value="q"/></platform></widget>`
	m, err := Deserialize([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "Y", m.Name)
	assert.Equal(t, map[string]string{"p": "q"}, m.Platforms["ios"].Preferences)
}

func TestDeserializeMalformed(t *testing.T) {
	for name, doc := range map[string]string{
		"unclosed":   `<widget id="x"><name>broken</widget>`,
		"empty":      ``,
		"wrong root": `<plugin id="x"/>`,
		"two roots":  `<widget/><widget/>`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Deserialize([]byte(doc))
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, ErrMalformedXML))
		})
	}
}

func TestPlatformOverridesCarryTheFullMapping(t *testing.T) {
	src, err := FromTree(map[string]any{
		"id":      "com.example.app",
		"name":    "Example",
		"version": "1.0.0",
		"platforms": map[string]any{
			"android": map[string]any{
				"name":        "XA",
				"description": "droid",
				"version":     "1.0.1",
				"author":      map[string]any{"name": "Droid Team"},
				"content":     map[string]any{"src": "a.html"},
				"access":      map[string]any{"origin": "https://api.example.com"},
				"preferences": map[string]any{"k": "v"},
			},
		},
	})
	require.NoError(t, err)
	android := src.Platforms["android"]
	assert.Equal(t, "XA", android.Name)
	assert.Equal(t, "droid", android.Description)
	require.NotNil(t, android.Content)
	assert.Equal(t, "a.html", android.Content.Src)

	data, err := Serialize(src)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `<platform name="android" version="1.0.1">`)
	assert.Contains(t, text, `<name>XA</name>`)
	assert.Contains(t, text, `<content src="a.html"></content>`)

	got, err := Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, src, got)
	assert.Equal(t, "Example", got.Name)
}

func TestSerializeRejectsCharactersXMLCannotHold(t *testing.T) {
	for name, mutate := range map[string]func(m *Manifest){
		"text":      func(m *Manifest) { m.Name = "n\x01ame" },
		"attribute": func(m *Manifest) { m.Preferences["Fullscreen"] = "tr\x1fue" },
		"platform":  func(m *Manifest) { m.Platforms["ios"] = Platform{Description: "bad\uFFFE"} },
		"utf8":      func(m *Manifest) { m.Description = "caf\xe9" },
	} {
		t.Run(name, func(t *testing.T) {
			m := sampleManifest()
			mutate(m)
			_, err := Serialize(m)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, ErrMalformedManifest))
		})
	}
}
