package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/ringclient-core/internal/video"
)

// MeasurementVideoSession holds one point per renderer start or stop.
const MeasurementVideoSession = "video_session"

// Session kinds and events, stored as tags.
const (
	KindPreview = "preview"
	KindCall    = "call"

	EventStarted = "started"
	EventEnded   = "ended"
)

// Session is one renderer lifecycle event. Call ids go in Key, a field, to
// bound series cardinality.
type Session struct {
	ClientID string
	Kind     string
	Event    string
	Key      string
	ShmPath  string
	Width    int
	Height   int
	Duration time.Duration
	At       time.Time
}

// Point converts s to a video_session point.
func (s Session) Point() *write.Point {
	at := s.At
	if at.IsZero() {
		at = time.Now()
	}

	p := write.NewPointWithMeasurement(MeasurementVideoSession).
		AddTag("client_id", s.ClientID).
		AddTag("kind", s.Kind).
		AddTag("event", s.Event).
		AddField("key", s.Key).
		AddField("width", s.Width).
		AddField("height", s.Height).
		SetTime(at)
	if s.ShmPath != "" {
		p.AddField("shm_path", s.ShmPath)
	}
	if s.Event == EventEnded {
		p.AddField("duration_ms", s.Duration.Milliseconds())
	}
	return p
}

// WriteSession queues s for the next batch.
func (c *Client) WriteSession(s Session) {
	c.writePoint(s.Point())
}

// SessionWriter is the subset of *Client used by SessionRecorder.
type SessionWriter interface {
	WriteSession(s Session)
}

// SessionRecorder implements video.SessionRecorder on top of a SessionWriter.
type SessionRecorder struct {
	w        SessionWriter
	clientID string
}

var _ video.SessionRecorder = (*SessionRecorder)(nil)

// NewSessionRecorder creates a recorder tagging points with clientID.
func NewSessionRecorder(w SessionWriter, clientID string) *SessionRecorder {
	return &SessionRecorder{w: w, clientID: clientID}
}

// SessionStarted records a renderer starting.
func (r *SessionRecorder) SessionStarted(key, shmPath string, res video.Resolution) {
	r.w.WriteSession(Session{
		ClientID: r.clientID,
		Kind:     sessionKind(key),
		Event:    EventStarted,
		Key:      key,
		ShmPath:  shmPath,
		Width:    res.Width,
		Height:   res.Height,
	})
}

// SessionEnded records a renderer stopping after elapsed.
func (r *SessionRecorder) SessionEnded(key string, res video.Resolution, elapsed time.Duration) {
	r.w.WriteSession(Session{
		ClientID: r.clientID,
		Kind:     sessionKind(key),
		Event:    EventEnded,
		Key:      key,
		Width:    res.Width,
		Height:   res.Height,
		Duration: elapsed,
	})
}

func sessionKind(key string) string {
	if key == video.PreviewKey {
		return KindPreview
	}
	return KindCall
}
