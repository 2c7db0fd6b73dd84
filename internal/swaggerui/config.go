// Package swaggerui bootstraps the Swagger UI widget that renders the
// service's OpenAPI document as a browsable page.
//
// A Bootstrapper reads the document URL off the hosting page markup, builds
// a Config, hands it to a Library together with its plugins and publishes
// the resulting *UI handle in a Context so other code can drive the widget
// later (deep links, for example).
package swaggerui

const (
	// MountID is the id of the element that hosts the rendered UI.
	MountID = "swagger-ui"
	// SpecURLAttr is the attribute on the mount element holding the URL of
	// the OpenAPI document.
	SpecURLAttr = "openapi-url"
	// MountSelector is the CSS selector handed to the library.
	MountSelector = "#" + MountID
	// GlobalName is the browser global the initialized widget is bound to.
	GlobalName = "ui"
)

// Preset names a rendering preset bundle shipped with the library.
type Preset string

const (
	// PresetAPIs is the base preset rendering operations and models.
	PresetAPIs Preset = "apis"
	// PresetStandalone adds the top bar and standalone layout. Known to the
	// library, not activated by this build.
	PresetStandalone Preset = "standalone"
)

// Config is the configuration handed once to the library initializer.
type Config struct {
	SpecURL       string
	MountSelector string
	DeepLinking   bool
	// Presets are applied in order; later presets override earlier ones.
	Presets []Preset
	// Plugins are layered in order; later plugins wrap earlier ones.
	Plugins []Plugin
}

// NewConfig returns the configuration of this build for the given document
// URL: deep linking on, the apis preset only, and the info URL suppressed.
func NewConfig(specURL string) Config {
	return Config{
		SpecURL:       specURL,
		MountSelector: MountSelector,
		DeepLinking:   true,
		Presets:       []Preset{PresetAPIs},
		Plugins:       []Plugin{InfoURLSuppression()},
	}
}

// PluginNames returns the names of the configured plugins in order.
func (c Config) PluginNames() []string {
	names := make([]string, len(c.Plugins))
	for i, p := range c.Plugins {
		names[i] = p.Name
	}
	return names
}
