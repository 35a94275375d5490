package collectionmodel

import (
	"github.com/nerrad567/ringclient-core/internal/collection"
	"github.com/nerrad567/ringclient-core/internal/notify"
)

// Extension is a column provider attached to the model.
type Extension interface {
	// Name is the column header.
	Name() string

	// Data returns the cell value for c. The model calls it with RoleDisplay
	// for the extension's column and with the built-in role for others.
	Data(c collection.Interface, role Role) any

	// Changed fires when the extension's value for a collection changes.
	Changed() *notify.Signal[collection.Interface]
}

// SizeExtension is a column showing how many items each collection holds.
type SizeExtension struct {
	changed notify.Signal[collection.Interface]
}

var _ Extension = (*SizeExtension)(nil)

// Name returns the column header.
func (*SizeExtension) Name() string { return "Items" }

// Data returns c.Size() for RoleDisplay.
func (*SizeExtension) Data(c collection.Interface, role Role) any {
	if role != RoleDisplay {
		return nil
	}
	return c.Size()
}

// Changed fires when Touch is called.
func (e *SizeExtension) Changed() *notify.Signal[collection.Interface] { return &e.changed }

// Touch reports that c's size may have changed.
func (e *SizeExtension) Touch(c collection.Interface) { e.changed.Emit(c) }
