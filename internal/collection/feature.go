package collection

import "strings"

// Feature is the closed set of capabilities a collection can advertise.
// Values combine with bitwise OR.
type Feature uint32

// Feature bits.
const (
	FeatureNone          Feature = 0
	FeatureLoad          Feature = 1 << 0
	FeatureSave          Feature = 1 << 1
	FeatureEdit          Feature = 1 << 2
	FeatureProbe         Feature = 1 << 3
	FeatureAdd           Feature = 1 << 4
	FeatureRemove        Feature = 1 << 5
	FeatureCustom        Feature = 1 << 6
	FeatureSearch        Feature = 1 << 7
	FeatureClear         Feature = 1 << 8
	FeatureRemoveCreated Feature = 1 << 9
	FeatureManageable    Feature = 1 << 10
	FeatureDisableable   Feature = 1 << 11
	FeatureExport        Feature = 1 << 12
	FeatureImport        Feature = 1 << 13
)

// featureNames lists each bit in declaration order.
var featureNames = []struct {
	bit  Feature
	name string
}{
	{FeatureLoad, "LOAD"},
	{FeatureSave, "SAVE"},
	{FeatureEdit, "EDIT"},
	{FeatureProbe, "PROBE"},
	{FeatureAdd, "ADD"},
	{FeatureRemove, "REMOVE"},
	{FeatureCustom, "CUSTOM"},
	{FeatureSearch, "SEARCH"},
	{FeatureClear, "CLEAR"},
	{FeatureRemoveCreated, "REMOVE_CREATED"},
	{FeatureManageable, "MANAGEABLE"},
	{FeatureDisableable, "DISABLEABLE"},
	{FeatureExport, "EXPORT"},
	{FeatureImport, "IMPORT"},
}

// Has reports whether every bit of want is set in f.
func (f Feature) Has(want Feature) bool {
	return f&want == want
}

// Any reports whether at least one bit of want is set in f.
func (f Feature) Any(want Feature) bool {
	return f&want != 0
}

// String renders the set as "LOAD|CLEAR|...", or "NONE".
func (f Feature) String() string {
	if f == FeatureNone {
		return "NONE"
	}
	var parts []string
	for _, fn := range featureNames {
		if f&fn.bit != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// Names returns the names of the set bits, for JSON views.
func (f Feature) Names() []string {
	names := make([]string, 0, len(featureNames))
	for _, fn := range featureNames {
		if f&fn.bit != 0 {
			names = append(names, fn.name)
		}
	}
	return names
}
