package contact

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nerrad567/ringclient-core/internal/collection"
)

// KindTransitional is the kind of the unsaved-contacts collection.
const KindTransitional collection.Kind = "transitional"

// TransitionalID is the persistent class tag of the unsaved-contacts collection.
const TransitionalID = "tcb1"

// TransitionalCollection holds persons created during the session that have
// not been saved to a persistent collection yet. It lives only in memory and
// only supports adding.
type TransitionalCollection struct {
	*collection.BaseEditor[*Person]
}

// NewTransitionalCollection is the Factory for KindTransitional. params is ignored.
func NewTransitionalCollection(b collection.Binding[*Person], _ any) (collection.Backend[*Person], error) {
	return &TransitionalCollection{BaseEditor: collection.NewBaseEditor(b.Mediator)}, nil
}

// ID returns "tcb1".
func (t *TransitionalCollection) ID() []byte { return []byte(TransitionalID) }

// Name returns the display name.
func (t *TransitionalCollection) Name() string { return "New contacts" }

// Category returns "Contacts".
func (t *TransitionalCollection) Category() string { return "Contacts" }

// Icon returns the icon name.
func (t *TransitionalCollection) Icon() string { return "" }

// Features returns FeatureAdd.
func (t *TransitionalCollection) Features() collection.Feature { return collection.FeatureAdd }

// Editor returns the collection itself.
func (t *TransitionalCollection) Editor() collection.Editor[*Person] { return t }

// Load is not supported.
func (t *TransitionalCollection) Load(context.Context) error { return collection.ErrUnsupported }

// Reload is not supported.
func (t *TransitionalCollection) Reload(context.Context) error { return collection.ErrUnsupported }

// Clear is not supported.
func (t *TransitionalCollection) Clear(context.Context) error { return collection.ErrUnsupported }

// Save is not supported; persons leave this collection by being added to a
// persistent one.
func (t *TransitionalCollection) Save(*Person) error { return collection.ErrUnsupported }

// Remove is not supported.
func (t *TransitionalCollection) Remove(*Person) error { return collection.ErrUnsupported }

// Edit is not supported.
func (t *TransitionalCollection) Edit(*Person) error { return collection.ErrUnsupported }

// AddNew assigns a UID when p has none and adds it.
func (t *TransitionalCollection) AddNew(p *Person) error {
	if p.UID() == "" {
		p.SetUID(uuid.NewString())
	}
	return t.AddExisting(p)
}

// AddPhoneNumber attaches n to the held person with uid and reports the
// change to the master model.
func (t *TransitionalCollection) AddPhoneNumber(uid string, n PhoneNumber) error {
	p, ok := t.Find(uid)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPersonNotFound, uid)
	}
	if p.AddPhoneNumber(n) {
		t.Mediator().ItemChanged(p)
	}
	return nil
}
