package contact

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/ringclient-core/internal/collection"
)

// KindAddressBook is the kind of SQLite address-book collections.
const KindAddressBook collection.Kind = "address-book"

// AddressBookID is the persistent class tag of address-book collections.
const AddressBookID = "sab1"

// AddressBookFeatures is the feature set of address-book collections.
const AddressBookFeatures = collection.FeatureLoad |
	collection.FeatureSave |
	collection.FeatureAdd |
	collection.FeatureRemove |
	collection.FeatureClear |
	collection.FeatureManageable |
	collection.FeatureDisableable |
	collection.FeatureExport

// queryTimeout bounds each editor-initiated database operation.
const queryTimeout = 5 * time.Second

// AddressBookParams configures an address-book collection.
type AddressBookParams struct {
	// Name is the display name. Defaults to "Address book".
	Name string
}

// AddressBookCollection is a Collection of persons stored in SQLite.
type AddressBookCollection struct {
	*collection.BaseEditor[*Person]

	repo Repository
	name string
}

// AddressBookFactory returns the Factory for KindAddressBook bound to repo.
func AddressBookFactory(repo Repository) collection.Factory[*Person] {
	return func(b collection.Binding[*Person], params any) (collection.Backend[*Person], error) {
		if repo == nil {
			return nil, ErrNoRepository
		}
		name := "Address book"
		switch p := params.(type) {
		case AddressBookParams:
			if p.Name != "" {
				name = p.Name
			}
		case nil:
		default:
			return nil, fmt.Errorf("%w: want AddressBookParams, got %T", collection.ErrInvalidParams, params)
		}
		return &AddressBookCollection{
			BaseEditor: collection.NewBaseEditor(b.Mediator),
			repo:       repo,
			name:       name,
		}, nil
	}
}

// ID returns "sab1".
func (a *AddressBookCollection) ID() []byte { return []byte(AddressBookID) }

// Name returns the display name.
func (a *AddressBookCollection) Name() string { return a.name }

// Category returns "Contacts".
func (a *AddressBookCollection) Category() string { return "Contacts" }

// Icon returns the icon name.
func (a *AddressBookCollection) Icon() string { return "x-office-address-book" }

// Features returns AddressBookFeatures.
func (a *AddressBookCollection) Features() collection.Feature { return AddressBookFeatures }

// Editor returns the collection itself.
func (a *AddressBookCollection) Editor() collection.Editor[*Person] { return a }

// Load reads every stored person not already held. On failure nothing is
// added.
func (a *AddressBookCollection) Load(ctx context.Context) error {
	people, err := a.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading address book: %w", err)
	}
	owned := a.Owned()
	for _, p := range people {
		if _, ok := owned[p.UID()]; ok {
			continue
		}
		if err := a.AddExisting(p); err != nil {
			return err
		}
	}
	return nil
}

// Reload drops the loaded persons and loads again.
func (a *AddressBookCollection) Reload(ctx context.Context) error {
	a.ForgetAll()
	return a.Load(ctx)
}

// Clear deletes every stored person and withdraws them.
func (a *AddressBookCollection) Clear(ctx context.Context) error {
	if err := a.repo.DeleteAll(ctx); err != nil {
		return err
	}
	a.ForgetAll()
	return nil
}

// Save stores p.
func (a *AddressBookCollection) Save(p *Person) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	return a.repo.Upsert(ctx, p)
}

// AddNew assigns a UID if needed, stores p and adds it.
func (a *AddressBookCollection) AddNew(p *Person) error {
	if p.UID() == "" {
		p.SetUID(uuid.NewString())
	}
	if err := a.Save(p); err != nil {
		return err
	}
	return a.AddExisting(p)
}

// Remove deletes p from the store and withdraws it. A person that was never
// stored is still withdrawn.
func (a *AddressBookCollection) Remove(p *Person) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	if err := a.repo.Delete(ctx, p.UID()); err != nil && !isNotFound(err) {
		return err
	}
	return a.Forget(p)
}

// Edit is not supported.
func (a *AddressBookCollection) Edit(*Person) error { return collection.ErrUnsupported }

// Export writes every stored card to w as one vCard stream.
func (a *AddressBookCollection) Export(ctx context.Context, w io.Writer) error {
	cards, err := a.repo.ExportRaw(ctx)
	if err != nil {
		return err
	}
	for _, raw := range cards {
		if _, err := w.Write(raw); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
	}
	return nil
}
