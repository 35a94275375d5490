package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/ringclient-core/internal/collection"
	"github.com/nerrad567/ringclient-core/internal/collectionmodel"
)

// handleListCollections returns the collection tree.
func (s *Server) handleListCollections(w http.ResponseWriter, _ *http.Request) {
	tree := s.app.Collections.Tree()
	writeJSON(w, http.StatusOK, map[string]any{
		"collections": tree,
		"count":       s.app.Contacts.Len(),
	})
}

// handleGetCollection returns one collection row and its subtree.
func (s *Server) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	h, ok := parseHandle(w, r)
	if !ok {
		return
	}
	node, found := findNode(s.app.Collections.Tree(), h)
	if !found {
		writeNotFound(w, "collection not found")
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// setEnabledRequest is the request body for PUT /collections/{handle}/enabled.
type setEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// handleSetCollectionEnabled toggles a collection's check state.
func (s *Server) handleSetCollectionEnabled(w http.ResponseWriter, r *http.Request) {
	h, ok := parseHandle(w, r)
	if !ok {
		return
	}
	var req setEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Enabled == nil {
		writeBadRequest(w, "enabled is required")
		return
	}

	err := s.app.Call(r.Context(), func() error {
		idx := s.app.Collections.IndexOf(h)
		if !idx.IsValid() {
			return fmt.Errorf("handle %d: %w", h, collection.ErrNotFound)
		}
		return s.app.Collections.SetData(idx, *req.Enabled, collectionmodel.RoleCheckState)
	})
	if err != nil {
		writeAppError(w, err)
		return
	}

	node, _ := findNode(s.app.Collections.Tree(), h)
	writeJSON(w, http.StatusOK, node)
}

// handleReloadCollection reloads one collection from its backend.
func (s *Server) handleReloadCollection(w http.ResponseWriter, r *http.Request) {
	h, ok := parseHandle(w, r)
	if !ok {
		return
	}

	err := s.app.Call(r.Context(), func() error {
		c, found := s.app.Contacts.Get(h)
		if !found {
			return fmt.Errorf("handle %d: %w", h, collection.ErrNotFound)
		}
		return c.Reload(r.Context())
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "reloaded", "handle": uint64(h)})
}

// handleSaveCollections saves every collection advertising SAVE.
func (s *Server) handleSaveCollections(w http.ResponseWriter, r *http.Request) {
	s.fanOut(w, r, "saved", s.app.Collections.Save)
}

// handleLoadCollections loads every collection advertising LOAD.
func (s *Server) handleLoadCollections(w http.ResponseWriter, r *http.Request) {
	s.fanOut(w, r, "loaded", s.app.Collections.Load)
}

func (s *Server) fanOut(w http.ResponseWriter, r *http.Request, status string, fn func(ctx context.Context) error) {
	err := s.app.Call(r.Context(), func() error { return fn(r.Context()) })
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": status})
}

// parseHandle reads the {handle} URL parameter, writing a 400 on failure.
func parseHandle(w http.ResponseWriter, r *http.Request) (collection.Handle, bool) {
	raw := chi.URLParam(r, "handle")
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == uint64(collection.NoHandle) {
		writeBadRequest(w, "invalid collection handle: "+raw)
		return collection.NoHandle, false
	}
	return collection.Handle(v), true
}

// findNode searches the tree depth-first for handle.
func findNode(nodes []collectionmodel.Node, handle collection.Handle) (collectionmodel.Node, bool) {
	for _, n := range nodes {
		if n.Handle == uint64(handle) {
			return n, true
		}
		if found, ok := findNode(n.Children, handle); ok {
			return found, true
		}
	}
	return collectionmodel.Node{}, false
}
