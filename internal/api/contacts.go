package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/ringclient-core/internal/contact"
)

// personView is the JSON rendering of one person row.
type personView struct {
	UID           string                `json:"uid"`
	DisplayName   string                `json:"display_name"`
	FormattedName string                `json:"formatted_name,omitempty"`
	GivenName     string                `json:"given_name,omitempty"`
	FamilyName    string                `json:"family_name,omitempty"`
	Organization  string                `json:"organization,omitempty"`
	Note          string                `json:"note,omitempty"`
	Emails        []string              `json:"emails,omitempty"`
	PhoneNumbers  []contact.PhoneNumber `json:"phone_numbers,omitempty"`
	Collections   []uint64              `json:"collections"`
}

func (s *Server) viewPerson(p *contact.Person) personView {
	v := personView{
		UID:           p.UID(),
		DisplayName:   p.DisplayName(),
		FormattedName: p.FormattedName,
		GivenName:     p.GivenName,
		FamilyName:    p.FamilyName,
		Organization:  p.Organization,
		Note:          p.Note,
		Emails:        append([]string(nil), p.Emails...),
		PhoneNumbers:  append([]contact.PhoneNumber(nil), p.PhoneNumbers...),
		Collections:   []uint64{},
	}
	for _, h := range s.app.People.Contributors(p.UID()) {
		v.Collections = append(v.Collections, uint64(h))
	}
	return v
}

// handleListContacts returns the merged person table. The optional q
// parameter filters by a case-insensitive substring of the display name.
func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))

	var people []personView
	err := s.app.Call(r.Context(), func() error {
		people = make([]personView, 0, s.app.People.RowCount())
		for _, p := range s.app.People.Items() {
			if q != "" && !strings.Contains(strings.ToLower(p.DisplayName()), q) {
				continue
			}
			people = append(people, s.viewPerson(p))
		}
		return nil
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contacts": people,
		"count":    len(people),
	})
}

// handleGetContact returns one person by UID.
func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	var view personView
	err := s.app.Call(r.Context(), func() error {
		p, ok := s.app.People.FindByUID(uid)
		if !ok {
			return fmt.Errorf("%w: %s", contact.ErrPersonNotFound, uid)
		}
		view = s.viewPerson(p)
		return nil
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// createContactRequest is the request body for POST /contacts.
type createContactRequest struct {
	UID           string                `json:"uid"`
	FormattedName string                `json:"formatted_name"`
	GivenName     string                `json:"given_name"`
	FamilyName    string                `json:"family_name"`
	Organization  string                `json:"organization"`
	Note          string                `json:"note"`
	Emails        []string              `json:"emails"`
	PhoneNumbers  []contact.PhoneNumber `json:"phone_numbers"`
}

// handleCreateContact adds a person to the transitional collection, where it
// stays until the user saves it elsewhere.
func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var req createContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	p := contact.NewPerson(strings.TrimSpace(req.UID))
	p.FormattedName = req.FormattedName
	p.GivenName = req.GivenName
	p.FamilyName = req.FamilyName
	p.Organization = req.Organization
	p.Note = req.Note
	for _, e := range req.Emails {
		p.AddEmail(e)
	}
	for _, n := range req.PhoneNumbers {
		if n.Number == "" {
			writeBadRequest(w, "phone number must not be empty")
			return
		}
		p.AddPhoneNumber(n)
	}
	if p.DisplayName() == "" && p.UID() == "" {
		writeBadRequest(w, "contact needs a name, organization or phone number")
		return
	}

	var view personView
	err := s.app.Call(r.Context(), func() error {
		if err := s.app.Transitional.Editor().AddNew(p); err != nil {
			return err
		}
		merged, ok := s.app.People.FindByUID(p.UID())
		if !ok {
			merged = p
		}
		view = s.viewPerson(merged)
		return nil
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}
