package contact

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/emersion/go-vcard"
)

// vcardVersion is the version written on every encoded card.
const vcardVersion = "4.0"

// ToCard converts a person to a vCard.
func ToCard(p *Person) vcard.Card {
	card := make(vcard.Card)
	card.SetValue(vcard.FieldVersion, vcardVersion)
	card.SetValue(vcard.FieldUID, p.UID())
	card.SetValue(vcard.FieldFormattedName, p.DisplayName())

	if p.GivenName != "" || p.FamilyName != "" {
		card.SetName(&vcard.Name{
			GivenName:  p.GivenName,
			FamilyName: p.FamilyName,
		})
	}
	if p.Organization != "" {
		card.SetValue(vcard.FieldOrganization, p.Organization)
	}
	if p.Note != "" {
		card.SetValue(vcard.FieldNote, p.Note)
	}
	for _, e := range p.Emails {
		card.AddValue(vcard.FieldEmail, e)
	}
	for _, n := range p.PhoneNumbers {
		field := &vcard.Field{Value: n.Number}
		if n.Category != "" {
			field.Params = vcard.Params{vcard.ParamType: []string{n.Category}}
		}
		card.Add(vcard.FieldTelephone, field)
	}
	return card
}

// FromCard converts a vCard to a person.
func FromCard(card vcard.Card) *Person {
	p := NewPerson(card.Value(vcard.FieldUID))
	p.FormattedName = card.PreferredValue(vcard.FieldFormattedName)
	if name := card.Name(); name != nil {
		p.GivenName = name.GivenName
		p.FamilyName = name.FamilyName
	}
	p.Organization = card.Value(vcard.FieldOrganization)
	p.Note = card.Value(vcard.FieldNote)

	for _, e := range card.Values(vcard.FieldEmail) {
		if e != "" {
			p.AddEmail(e)
		}
	}
	for _, f := range card[vcard.FieldTelephone] {
		number := strings.TrimPrefix(f.Value, "tel:")
		if number == "" {
			continue
		}
		p.AddPhoneNumber(PhoneNumber{Number: number, Category: phoneCategory(f)})
	}
	return p
}

// phoneCategory returns the first TYPE of a TEL field, lower-cased.
func phoneCategory(f *vcard.Field) string {
	types := f.Params[vcard.ParamType]
	if len(types) == 0 {
		return ""
	}
	first, _, _ := strings.Cut(types[0], ",")
	return strings.ToLower(strings.Trim(first, `"`))
}

// Decode reads every card in r.
func Decode(r io.Reader) ([]*Person, error) {
	dec := vcard.NewDecoder(r)
	var people []*Person
	for {
		card, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return people, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decoding vcard: %w", err)
		}
		vcard.ToV4(card)
		people = append(people, FromCard(card))
	}
}

// Encode writes one card per person to w.
func Encode(w io.Writer, people ...*Person) error {
	enc := vcard.NewEncoder(w)
	for _, p := range people {
		if err := enc.Encode(ToCard(p)); err != nil {
			return fmt.Errorf("encoding vcard %s: %w", p.UID(), err)
		}
	}
	return nil
}

// Marshal encodes a single person.
func Marshal(p *Person) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeFile reads every card in the file at path.
func DecodeFile(path string) ([]*Person, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only

	people, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return people, nil
}
