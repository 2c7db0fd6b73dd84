package swaggerui

// Slot names a sub-component of the library whose renderer a plugin may wrap.
type Slot string

// Slots of the bundle that plugins may wrap.
const (
	// SlotInfoURL is the link to the OpenAPI document under the API title.
	SlotInfoURL          Slot = "InfoUrl"
	// SlotInfoBasePath is the base URL line of Swagger 2 documents.
	SlotInfoBasePath     Slot = "InfoBasePath"
	// SlotContact is the contact block of the info section.
	SlotContact          Slot = "Contact"
	// SlotLicense is the license block of the info section.
	SlotLicense          Slot = "License"
	// SlotServersContainer is the server selector.
	SlotServersContainer Slot = "ServersContainer"
	// SlotAuthorizeButton opens the authorization dialog.
	SlotAuthorizeButton  Slot = "authorizeBtn"
)

// Props are the values the library passes to a component renderer.
type Props map[string]string

// Renderer produces the markup of one component. An empty string renders
// nothing.
type Renderer func(props Props) string

// Wrap replaces a component renderer. JS is the equivalent wrapComponents
// factory emitted into the browser initializer.
type Wrap struct {
	Apply func(original Renderer) Renderer
	JS    string
}

// Plugin overrides named component renderers of the library.
type Plugin struct {
	// Name is used as the JavaScript identifier of the plugin factory.
	Name           string
	WrapComponents map[Slot]Wrap
}

// InfoURLSuppressionName is the name of the plugin returned by
// InfoURLSuppression.
const InfoURLSuppressionName = "InfoUrlSuppression"

// InfoURLSuppression hides the link to the OpenAPI document that the library
// shows under the API title.
func InfoURLSuppression() Plugin {
	return Plugin{
		Name: InfoURLSuppressionName,
		WrapComponents: map[Slot]Wrap{
			SlotInfoURL: {
				Apply: func(Renderer) Renderer { return renderNothing },
				JS:    "() => () => null",
			},
		},
	}
}

func renderNothing(Props) string { return "" }
