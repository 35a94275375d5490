package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/nerrad567/ringclient-core/internal/video"
)

// rendererView is the JSON rendering of a renderer.
type rendererView struct {
	Key        string           `json:"key"`
	Preview    bool             `json:"preview"`
	ShmPath    string           `json:"shm_path"`
	Resolution video.Resolution `json:"resolution"`
	Rendering  bool             `json:"rendering"`
}

func viewRenderer(r *video.Renderer) rendererView {
	return rendererView{
		Key:        r.Key(),
		Preview:    r.IsPreview(),
		ShmPath:    r.ShmPath(),
		Resolution: r.Resolution(),
		Rendering:  r.IsRendering(),
	}
}

// channelView is the JSON rendering of a device channel.
type channelView struct {
	Name        string             `json:"name"`
	Resolutions []video.Resolution `json:"resolutions"`
}

// deviceView is the JSON rendering of a capture device.
type deviceView struct {
	ID               string           `json:"id"`
	Active           bool             `json:"active"`
	ActiveChannel    string           `json:"active_channel,omitempty"`
	ActiveResolution video.Resolution `json:"active_resolution"`
	Channels         []channelView    `json:"channels"`
}

func viewDevice(d *video.Device, current *video.Device) deviceView {
	v := deviceView{
		ID:               d.ID(),
		Active:           current != nil && current.ID() == d.ID(),
		ActiveResolution: d.ActiveResolution(),
		Channels:         []channelView{},
	}
	if ch := d.ActiveChannel(); ch != nil {
		v.ActiveChannel = ch.Name()
	}
	for _, ch := range d.Channels() {
		v.Channels = append(v.Channels, channelView{Name: ch.Name(), Resolutions: ch.Resolutions()})
	}
	return v
}

// handleListRenderers returns every live renderer and the preview state.
func (s *Server) handleListRenderers(w http.ResponseWriter, _ *http.Request) {
	renderers := s.app.Video.Renderers()
	sort.Slice(renderers, func(i, j int) bool { return renderers[i].Key() < renderers[j].Key() })

	views := make([]rendererView, 0, len(renderers))
	for _, r := range renderers {
		views = append(views, viewRenderer(r))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"renderers":  views,
		"previewing": s.app.Video.IsPreviewing(),
	})
}

// handleListDevices returns the cached device roster. With refresh=true the
// roster is first reconciled against the daemon.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		err := s.app.Call(r.Context(), func() error {
			s.app.Video.Devices(r.Context())
			return nil
		})
		if err != nil {
			writeAppError(w, err)
			return
		}
	}

	current, _ := s.app.Devices.Current()
	devices := s.app.Devices.Devices()
	views := make([]deviceView, 0, len(devices))
	for _, d := range devices {
		views = append(views, viewDevice(d, current))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": views,
		"count":   len(views),
	})
}

// handleStartPreview starts the local camera preview.
func (s *Server) handleStartPreview(w http.ResponseWriter, r *http.Request) {
	s.previewCommand(w, r, s.app.Video.StartPreview)
}

// handleStopPreview stops the local camera preview.
func (s *Server) handleStopPreview(w http.ResponseWriter, r *http.Request) {
	s.previewCommand(w, r, s.app.Video.StopPreview)
}

func (s *Server) previewCommand(w http.ResponseWriter, r *http.Request, fn func(context.Context) error) {
	err := s.app.Call(r.Context(), func() error { return fn(r.Context()) })
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"previewing": s.app.Video.IsPreviewing()})
}

// switchDeviceRequest is the request body for PUT /video/devices/active.
type switchDeviceRequest struct {
	ID string `json:"id"`
}

// handleSwitchDevice makes a device the daemon's input.
func (s *Server) handleSwitchDevice(w http.ResponseWriter, r *http.Request) {
	var req switchDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.ID == "" {
		writeBadRequest(w, "id is required")
		return
	}

	var view deviceView
	err := s.app.Call(r.Context(), func() error {
		d, ok := s.app.Video.Device(req.ID)
		if !ok {
			return fmt.Errorf("%w: %s", video.ErrDeviceNotFound, req.ID)
		}
		if err := s.app.Video.SwitchDevice(r.Context(), d); err != nil {
			return err
		}
		view = viewDevice(d, d)
		return nil
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
