package video

import (
	"fmt"
	"sync"
)

// Resolution is a frame size in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// IsZero reports whether the resolution is unset.
func (r Resolution) IsZero() bool { return r.Width == 0 && r.Height == 0 }

// String renders "WxH".
func (r Resolution) String() string { return fmt.Sprintf("%dx%d", r.Width, r.Height) }

// ChannelCapabilities describes one input channel as reported by the daemon.
type ChannelCapabilities struct {
	Name        string       `json:"name"`
	Resolutions []Resolution `json:"resolutions"`
}

// Channel is one input of a device, for example a camera's "default" feed.
type Channel struct {
	name string

	mu          sync.RWMutex
	resolutions []Resolution
	active      int
}

// NewChannel creates a channel offering resolutions. The first one is active.
func NewChannel(name string, resolutions ...Resolution) *Channel {
	return &Channel{name: name, resolutions: append([]Resolution(nil), resolutions...)}
}

// Name returns the channel name.
func (c *Channel) Name() string { return c.name }

// Resolutions returns the offered resolutions.
func (c *Channel) Resolutions() []Resolution {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Resolution(nil), c.resolutions...)
}

// ActiveResolution returns the selected resolution, or the zero value when
// the channel offers none.
func (c *Channel) ActiveResolution() Resolution {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.active < 0 || c.active >= len(c.resolutions) {
		return Resolution{}
	}
	return c.resolutions[c.active]
}

// SetActiveResolution selects res.
func (c *Channel) SetActiveResolution(res Resolution) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, have := range c.resolutions {
		if have == res {
			c.active = i
			return nil
		}
	}
	return fmt.Errorf("%w: %s on %s", ErrResolutionNotFound, res, c.name)
}
