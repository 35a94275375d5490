package api

import (
	"github.com/nerrad567/ringclient-core/internal/collection"
	"github.com/nerrad567/ringclient-core/internal/collectionmodel"
	"github.com/nerrad567/ringclient-core/internal/model"
	"github.com/nerrad567/ringclient-core/internal/video"
)

// relaySignals connects model and video signals to hub broadcasts and
// returns the functions that undo each connection.
func (s *Server) relaySignals() []func() {
	var undo []func()

	cm := s.app.Collections
	rowsPayload := func(op string, ev collectionmodel.RowsChange) map[string]any {
		payload := map[string]any{"op": op, "first": ev.First, "last": ev.Last, "parent": uint64(collection.NoHandle)}
		if c, ok := cm.CollectionAt(ev.Parent); ok {
			payload["parent"] = uint64(c.Handle())
		}
		if op == "inserted" {
			if c, ok := cm.CollectionAt(cm.Index(ev.First, collectionmodel.ColumnLabel, ev.Parent)); ok {
				payload["handle"] = uint64(c.Handle())
				payload["name"] = c.Name()
			}
		}
		return payload
	}
	ins := cm.RowsInserted().Connect(func(ev collectionmodel.RowsChange) {
		s.hub.Broadcast(ChannelCollectionsChanged, rowsPayload("inserted", ev))
	})
	rem := cm.RowsRemoved().Connect(func(ev collectionmodel.RowsChange) {
		s.hub.Broadcast(ChannelCollectionsChanged, rowsPayload("removed", ev))
	})
	chk := cm.CheckStateChanged().Connect(func(c collection.Interface) {
		s.hub.Broadcast(ChannelCollectionsEnabled, map[string]any{
			"handle":  uint64(c.Handle()),
			"name":    c.Name(),
			"enabled": c.IsEnabled(),
		})
	})
	undo = append(undo,
		func() { cm.RowsInserted().Disconnect(ins) },
		func() { cm.RowsRemoved().Disconnect(rem) },
		func() { cm.CheckStateChanged().Disconnect(chk) },
	)

	people := s.app.People
	contactRelay := func(op string) func(model.RowEvent) {
		return func(ev model.RowEvent) {
			s.hub.Broadcast(ChannelContactsChanged, map[string]any{
				"op":    op,
				"first": ev.First,
				"last":  ev.Last,
				"rows":  people.RowCount(),
			})
		}
	}
	pi := people.RowsInserted().Connect(contactRelay("inserted"))
	pr := people.RowsRemoved().Connect(contactRelay("removed"))
	pc := people.DataChanged().Connect(contactRelay("changed"))
	undo = append(undo,
		func() { people.RowsInserted().Disconnect(pi) },
		func() { people.RowsRemoved().Disconnect(pr) },
		func() { people.DataChanged().Disconnect(pc) },
	)

	reg := s.app.Video
	pv := reg.PreviewStateChanged().Connect(func(previewing bool) {
		s.hub.Broadcast(ChannelVideoPreview, map[string]any{"previewing": previewing})
	})
	callRelay := func(op string) func(*video.Renderer) {
		return func(r *video.Renderer) {
			payload := map[string]any{"op": op, "key": r.Key()}
			if op == "initiated" {
				payload["renderer"] = viewRenderer(r)
			}
			s.hub.Broadcast(ChannelVideoCall, payload)
		}
	}
	ci := reg.VideoCallInitiated().Connect(callRelay("initiated"))
	ce := reg.VideoCallEnded().Connect(callRelay("ended"))
	dev := s.app.Devices.ActiveChanged().Connect(func(d *video.Device) {
		s.hub.Broadcast(ChannelVideoDevice, viewDevice(d, d))
	})
	undo = append(undo,
		func() { reg.PreviewStateChanged().Disconnect(pv) },
		func() { reg.VideoCallInitiated().Disconnect(ci) },
		func() { reg.VideoCallEnded().Disconnect(ce) },
		func() { s.app.Devices.ActiveChanged().Disconnect(dev) },
	)

	return undo
}
