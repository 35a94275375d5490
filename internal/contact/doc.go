// Package contact provides the Person entity and the contact collections.
//
// Three collection kinds feed the person master model:
//
//   - KindFallback: a directory of vCard files ("fpc2"). Each subdirectory
//     becomes a child collection, registered on the next loop tick.
//   - KindTransitional: the in-memory holding area for contacts created
//     during a session but not yet saved anywhere ("tcb1").
//   - KindAddressBook: contacts stored in the SQLite persons table ("sab1").
//
// vCard parsing and serialisation use github.com/emersion/go-vcard. Cards
// are normalised to vCard 4.0 on read and written as 4.0.
//
// # Usage
//
//	persons := collection.NewManager[*contact.Person]("person", arena, master, loop)
//	if err := contact.RegisterKinds(persons, repo); err != nil {
//	    return err
//	}
//	c, err := persons.AddCollection(contact.KindFallback, contact.FallbackParams{Dir: dir}, collection.NoHandle)
package contact
