package swaggerui

import (
	"errors"
	"fmt"
	"sync"
)

// Errors returned by Bootstrapper.Load.
var (
	// ErrMountNotFound reports host markup without the mount element.
	ErrMountNotFound  = errors.New("swaggerui: mount element not found")
	// ErrSpecURLMissing reports a mount element without a document URL.
	ErrSpecURLMissing = errors.New("swaggerui: spec url attribute missing")
	// ErrAlreadyLoaded reports a second Load on the same Bootstrapper.
	ErrAlreadyLoaded  = errors.New("swaggerui: already loaded")
)

// Bootstrapper initializes the widget once per load.
type Bootstrapper struct {
	lib Library
	ctx *Context

	mu     sync.Mutex
	loaded bool
}

// NewBootstrapper returns a Bootstrapper that initializes lib and publishes
// the handle in ctx.
func NewBootstrapper(lib Library, ctx *Context) *Bootstrapper {
	return &Bootstrapper{lib: lib, ctx: ctx}
}

// Load reads the document URL from doc, initializes the library and
// publishes the handle. Failures are returned as is. Once the library has
// been called, later calls return ErrAlreadyLoaded without calling it again.
func (b *Bootstrapper) Load(doc Document) (*UI, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loaded {
		return nil, ErrAlreadyLoaded
	}

	specURL, err := SpecURL(doc)
	if err != nil {
		return nil, err
	}
	cfg := NewConfig(specURL)

	b.loaded = true
	ui, err := b.lib.Init(cfg)
	if err != nil {
		return nil, fmt.Errorf("init widget: %w", err)
	}
	if err := b.ctx.Publish(ui); err != nil {
		return nil, err
	}
	return ui, nil
}

// SpecURL returns the value of the spec URL attribute on the mount element.
func SpecURL(doc Document) (string, error) {
	el, ok := doc.ElementByID(MountID)
	if !ok {
		return "", fmt.Errorf("%w: #%s", ErrMountNotFound, MountID)
	}
	v, ok := el.Attr(SpecURLAttr)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s on #%s", ErrSpecURLMissing, SpecURLAttr, MountID)
	}
	return v, nil
}
