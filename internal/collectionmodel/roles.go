package collectionmodel

import "fmt"

// Role selects which facet of a cell Data returns.
type Role int

// Built-in roles. Extension i is addressable at RoleExtensionBase+i.
const (
	RoleDisplay Role = iota
	RoleCheckState
	RoleDecoration
	RoleCategory
	RoleFeatures
	RoleKind
	RoleHandle

	RoleExtensionBase Role = 0x100
)

var roleNames = map[Role]string{
	RoleDisplay:    "display",
	RoleCheckState: "checkState",
	RoleDecoration: "decoration",
	RoleCategory:   "category",
	RoleFeatures:   "features",
	RoleKind:       "kind",
	RoleHandle:     "handle",
}

// String returns the role name used by RoleNames.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	if r >= RoleExtensionBase {
		return fmt.Sprintf("extension%d", int(r-RoleExtensionBase))
	}
	return fmt.Sprintf("role%d", int(r))
}

// ItemFlag describes how a cell may be interacted with.
type ItemFlag uint8

// Item flags.
const (
	FlagSelectable ItemFlag = 1 << iota
	FlagEnabled
	FlagUserCheckable
)

// Has reports whether all bits of f2 are set.
func (f ItemFlag) Has(f2 ItemFlag) bool { return f&f2 == f2 }

// Fixed columns.
const (
	ColumnLabel    = 0
	ColumnReserved = 1

	fixedColumns = 2
)
