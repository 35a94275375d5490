package contact

import "strings"

// PhoneNumber is one contact method of a person.
type PhoneNumber struct {
	Number string `json:"number"`

	// Category is the vCard TYPE, e.g. "cell", "work", "home". May be empty.
	Category string `json:"category,omitempty"`
}

// Person is a contact. UID is the identity used for deduplication across
// collections; every other attribute is mergeable.
type Person struct {
	uid string

	FormattedName string
	GivenName     string
	FamilyName    string
	Organization  string
	Note          string
	Emails        []string
	PhoneNumbers  []PhoneNumber
}

// NewPerson creates a person with uid.
func NewPerson(uid string) *Person {
	return &Person{uid: uid}
}

// UID returns the person's unique identifier.
func (p *Person) UID() string { return p.uid }

// SetUID assigns the identifier. It must not be changed once the person has
// been offered to a master model.
func (p *Person) SetUID(uid string) { p.uid = uid }

// DisplayName returns the best available human label.
func (p *Person) DisplayName() string {
	if p.FormattedName != "" {
		return p.FormattedName
	}
	if full := strings.TrimSpace(p.GivenName + " " + p.FamilyName); full != "" {
		return full
	}
	if p.Organization != "" {
		return p.Organization
	}
	if len(p.PhoneNumbers) > 0 {
		return p.PhoneNumbers[0].Number
	}
	return p.uid
}

// AddPhoneNumber appends n unless the number is already present.
func (p *Person) AddPhoneNumber(n PhoneNumber) bool {
	for _, have := range p.PhoneNumbers {
		if have.Number == n.Number {
			return false
		}
	}
	p.PhoneNumbers = append(p.PhoneNumbers, n)
	return true
}

// AddEmail appends address unless it is already present.
func (p *Person) AddEmail(address string) bool {
	for _, have := range p.Emails {
		if strings.EqualFold(have, address) {
			return false
		}
	}
	p.Emails = append(p.Emails, address)
	return true
}

// MergeFrom folds other into p. Scalar attributes already set on p win;
// phone numbers and emails are unioned.
func (p *Person) MergeFrom(other *Person) bool {
	changed := false
	fill := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
			changed = true
		}
	}
	fill(&p.FormattedName, other.FormattedName)
	fill(&p.GivenName, other.GivenName)
	fill(&p.FamilyName, other.FamilyName)
	fill(&p.Organization, other.Organization)
	fill(&p.Note, other.Note)

	for _, e := range other.Emails {
		if p.AddEmail(e) {
			changed = true
		}
	}
	for _, n := range other.PhoneNumbers {
		if p.AddPhoneNumber(n) {
			changed = true
		}
	}
	return changed
}

// Clone returns a deep copy of p.
func (p *Person) Clone() *Person {
	c := *p
	c.Emails = append([]string(nil), p.Emails...)
	c.PhoneNumbers = append([]PhoneNumber(nil), p.PhoneNumbers...)
	return &c
}
