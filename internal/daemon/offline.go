package daemon

import (
	"context"

	"github.com/nerrad567/ringclient-core/internal/video"
)

// Offline is the video manager used when no daemon is configured.
// Every call fails with ErrUnavailable.
type Offline struct{}

var _ video.VideoManager = Offline{}

func (Offline) StartCamera(context.Context) error               { return ErrUnavailable }
func (Offline) StopCamera(context.Context) error                { return ErrUnavailable }
func (Offline) GetActiveDevice(context.Context) (string, error) { return "", ErrUnavailable }
func (Offline) SwitchInput(context.Context, string) error       { return ErrUnavailable }
func (Offline) GetDeviceList(context.Context) ([]string, error) { return nil, ErrUnavailable }

func (Offline) GetCapabilities(context.Context, string) ([]video.ChannelCapabilities, error) {
	return nil, ErrUnavailable
}
