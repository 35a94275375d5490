package contact

import "github.com/nerrad567/ringclient-core/internal/collection"

// RegisterKinds registers every contact collection kind with m. repo may be
// nil, in which case address-book collections fail to construct.
func RegisterKinds(m *collection.Manager[*Person], repo Repository) error {
	kinds := []struct {
		kind    collection.Kind
		factory collection.Factory[*Person]
	}{
		{KindFallback, NewFallbackCollection},
		{KindTransitional, NewTransitionalCollection},
		{KindAddressBook, AddressBookFactory(repo)},
	}
	for _, k := range kinds {
		if err := m.RegisterKind(k.kind, k.factory); err != nil {
			return err
		}
	}
	return nil
}
