package swaggerui

import (
	"errors"
	"sync/atomic"
)

// ErrAlreadyPublished reports a second Publish on the same Context.
var ErrAlreadyPublished = errors.New("swaggerui: handle already published")

// Context holds the initialized widget for the rest of the process. It is
// written once and read any number of times.
type Context struct {
	ui atomic.Pointer[UI]
}

// Publish binds the handle. Only the first call succeeds.
func (c *Context) Publish(ui *UI) error {
	if ui == nil {
		return errors.New("swaggerui: publish nil handle")
	}
	if !c.ui.CompareAndSwap(nil, ui) {
		return ErrAlreadyPublished
	}
	return nil
}

// UI returns the published handle, or false before publication.
func (c *Context) UI() (*UI, bool) {
	ui := c.ui.Load()
	return ui, ui != nil
}
