package swaggerui

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"text/template"
)

// Errors returned by Bundle.Init and UI.Render.
var (
	// ErrUnknownSlot reports a component name the bundle does not render.
	ErrUnknownSlot       = errors.New("swaggerui: plugin wraps unknown component")
	// ErrUnknownPreset reports a preset the bundle does not ship.
	ErrUnknownPreset     = errors.New("swaggerui: unknown preset")
	// ErrInvalidPluginName reports a plugin name unusable as a JavaScript
	// identifier.
	ErrInvalidPluginName = errors.New("swaggerui: plugin name is not a valid identifier")
)

// Library is the widget library entry point.
type Library interface {
	// Slots lists the component names plugins may wrap.
	Slots() []Slot
	// Init initializes the widget. It is called once per load.
	Init(cfg Config) (*UI, error)
}

// presetJS maps presets to the expressions that reference them in the
// browser bundle.
var presetJS = map[Preset]string{
	PresetAPIs:       "SwaggerUIBundle.presets.apis",
	PresetStandalone: "SwaggerUIStandalonePreset",
}

var identRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Bundle is the Swagger UI browser bundle. Init does not touch a browser: it
// validates the configuration against what the bundle supports and compiles
// the initializer script the hosting page loads.
type Bundle struct {
	// DocsPath is the path the documentation page is served under. It is
	// used to build deep links.
	DocsPath string
}

// NewBundle returns a Bundle whose page is served at docsPath.
func NewBundle(docsPath string) *Bundle {
	return &Bundle{DocsPath: docsPath}
}

var bundleSlots = []Slot{
	SlotInfoURL,
	SlotInfoBasePath,
	SlotContact,
	SlotLicense,
	SlotServersContainer,
	SlotAuthorizeButton,
}

func (b *Bundle) Slots() []Slot {
	return append([]Slot(nil), bundleSlots...)
}

func (b *Bundle) Init(cfg Config) (*UI, error) {
	if err := validate(b, cfg); err != nil {
		return nil, err
	}
	script, err := compileScript(cfg)
	if err != nil {
		return nil, err
	}
	return &UI{
		cfg:        cfg,
		script:     script,
		docsPath:   b.DocsPath,
		components: composeComponents(cfg.Plugins),
	}, nil
}

func validate(lib Library, cfg Config) error {
	for _, p := range cfg.Presets {
		if _, ok := presetJS[p]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownPreset, p)
		}
	}
	known := make(map[Slot]bool)
	for _, s := range lib.Slots() {
		known[s] = true
	}
	for _, p := range cfg.Plugins {
		if !identRe.MatchString(p.Name) {
			return fmt.Errorf("%w: %q", ErrInvalidPluginName, p.Name)
		}
		for slot := range p.WrapComponents {
			if !known[slot] {
				return fmt.Errorf("%w: plugin %s wraps %q", ErrUnknownSlot, p.Name, slot)
			}
		}
	}
	return nil
}

// defaultComponents are server-side renditions of the components plugins
// override. Only the info URL link the bundle shows under the API title is
// modelled; other slots render empty.
var defaultComponents = map[Slot]Renderer{
	SlotInfoURL: func(p Props) string {
		u := html.EscapeString(p["url"])
		return `<a class="link" target="_blank" href="` + u + `"><span class="url">` + u + `</span></a>`
	},
}

func composeComponents(plugins []Plugin) map[Slot]Renderer {
	components := make(map[Slot]Renderer, len(defaultComponents))
	for slot, r := range defaultComponents {
		components[slot] = r
	}
	for _, p := range plugins {
		for slot, w := range p.WrapComponents {
			components[slot] = w.Apply(components[slot])
		}
	}
	return components
}

type scriptPlugin struct {
	Name  string
	Wraps []scriptWrap
}

type scriptWrap struct {
	Slot string
	JS   string
}

var initializerTmpl = template.Must(template.New("initializer").Parse(`window.onload = function() {
{{- range .Plugins}}
  const {{.Name}} = () => {
    return {
      wrapComponents: {
{{- range $i, $w := .Wraps}}{{if $i}},{{end}}
        {{$w.Slot}}: {{$w.JS}}
{{- end}}
      }
    }
  }
{{end}}
  window.{{.Global}} = SwaggerUIBundle({
    url: {{.URL}},
    dom_id: {{.DomID}},
    deepLinking: {{.DeepLinking}},
    presets: [
{{- range $i, $p := .Presets}}{{if $i}},{{end}}
      {{$p}}
{{- end}}
    ],
    plugins: [
{{- range $i, $p := .Plugins}}{{if $i}},{{end}}
      {{$p.Name}}
{{- end}}
    ]
  });
};
`))

func compileScript(cfg Config) ([]byte, error) {
	specURL, err := json.Marshal(cfg.SpecURL)
	if err != nil {
		return nil, fmt.Errorf("encode spec url: %w", err)
	}
	domID, err := json.Marshal(cfg.MountSelector)
	if err != nil {
		return nil, fmt.Errorf("encode dom id: %w", err)
	}

	presets := make([]string, len(cfg.Presets))
	for i, p := range cfg.Presets {
		presets[i] = presetJS[p]
	}

	plugins := make([]scriptPlugin, len(cfg.Plugins))
	for i, p := range cfg.Plugins {
		sp := scriptPlugin{Name: p.Name}
		// Emit in the bundle's slot order so the script is stable.
		for _, slot := range bundleSlots {
			if w, ok := p.WrapComponents[slot]; ok {
				sp.Wraps = append(sp.Wraps, scriptWrap{Slot: string(slot), JS: w.JS})
			}
		}
		plugins[i] = sp
	}

	data := struct {
		Global      string
		URL         string
		DomID       string
		DeepLinking bool
		Presets     []string
		Plugins     []scriptPlugin
	}{
		Global:      GlobalName,
		URL:         string(specURL),
		DomID:       string(domID),
		DeepLinking: cfg.DeepLinking,
		Presets:     presets,
		Plugins:     plugins,
	}

	var buf bytes.Buffer
	if err := initializerTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render initializer: %w", err)
	}
	return buf.Bytes(), nil
}

// UI is the handle of an initialized widget.
type UI struct {
	cfg        Config
	script     []byte
	docsPath   string
	components map[Slot]Renderer
}

// Config returns the configuration the widget was initialized with.
func (u *UI) Config() Config { return u.cfg }

// Script returns the browser initializer for the hosting page.
func (u *UI) Script() []byte {
	return append([]byte(nil), u.script...)
}

// Render renders a component with the plugin overrides applied, so the
// effect of the configured plugins can be checked without a browser. Slots
// the bundle knows but that have no rendition render empty.
func (u *UI) Render(slot Slot, props Props) (string, error) {
	if !slices.Contains(bundleSlots, slot) {
		return "", fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	r, ok := u.components[slot]
	if !ok || r == nil {
		return "", nil
	}
	return r(props), nil
}

// DeepLink returns the documentation URL that expands the given operation.
// It returns the plain page URL when deep linking is disabled.
func (u *UI) DeepLink(tag, operationID string) string {
	base := strings.TrimSuffix(u.docsPath, "/") + "/"
	if !u.cfg.DeepLinking || tag == "" {
		return base
	}
	link := base + "#/" + url.PathEscape(tag)
	if operationID != "" {
		link += "/" + url.PathEscape(operationID)
	}
	return link
}
