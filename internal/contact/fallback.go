package contact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/nerrad567/ringclient-core/internal/collection"
)

// KindFallback is the kind of vCard directory collections.
const KindFallback collection.Kind = "vcard-directory"

// FallbackID is the persistent class tag of vCard directory collections.
const FallbackID = "fpc2"

// File system constants.
const (
	vcfExt   = ".vcf"
	dirPerm  = 0o750
	filePerm = 0o600
)

// FallbackFeatures is the feature set of vCard directory collections.
const FallbackFeatures = collection.FeatureLoad |
	collection.FeatureSave |
	collection.FeatureClear |
	collection.FeatureManageable |
	collection.FeatureAdd

// FallbackParams configures a vCard directory collection.
type FallbackParams struct {
	// Dir is the directory holding *.vcf files.
	Dir string
}

// FallbackCollection is a directory of vCard files. Loading reads every
// *.vcf file at the root of Dir and registers each subdirectory as a child
// collection on the next loop tick.
type FallbackCollection struct {
	*collection.BaseEditor[*Person]

	binding collection.Binding[*Person]
	dir     string
	name    string

	// spawned records subdirectories already registered as children.
	spawned map[string]bool
}

// NewFallbackCollection is the Factory for KindFallback. params may be a
// FallbackParams or a plain directory string.
func NewFallbackCollection(b collection.Binding[*Person], params any) (collection.Backend[*Person], error) {
	var dir string
	switch p := params.(type) {
	case FallbackParams:
		dir = p.Dir
	case string:
		dir = p
	default:
		return nil, fmt.Errorf("%w: want FallbackParams, got %T", collection.ErrInvalidParams, params)
	}
	if dir == "" {
		return nil, fmt.Errorf("%w: empty directory", collection.ErrInvalidParams)
	}
	return &FallbackCollection{
		BaseEditor: collection.NewBaseEditor(b.Mediator),
		binding:    b,
		dir:        dir,
		name:       directoryLabel(dir),
		spawned:    make(map[string]bool),
	}, nil
}

// directoryLabel derives a display name from the last path segment, first
// letter upper-cased. A trailing separator yields "vCard".
func directoryLabel(dir string) string {
	seg := dir[strings.LastIndexAny(dir, `/`+string(filepath.Separator))+1:]
	if seg == "" {
		return "vCard"
	}
	r, size := utf8.DecodeRuneInString(seg)
	return string(unicode.ToUpper(r)) + seg[size:]
}

// Dir returns the root directory.
func (f *FallbackCollection) Dir() string { return f.dir }

// ID returns "fpc2".
func (f *FallbackCollection) ID() []byte { return []byte(FallbackID) }

// Name returns the directory label.
func (f *FallbackCollection) Name() string { return f.name }

// Category returns "Contacts".
func (f *FallbackCollection) Category() string { return "Contacts" }

// Icon returns the icon name.
func (f *FallbackCollection) Icon() string { return "folder-vcard" }

// Features returns FallbackFeatures.
func (f *FallbackCollection) Features() collection.Feature { return FallbackFeatures }

// Editor returns the collection itself.
func (f *FallbackCollection) Editor() collection.Editor[*Person] { return f }

// Load reads every *.vcf at the root directory and schedules registration of
// subdirectories. Persons already loaded are not offered again. A missing or unreadable directory fails without touching
// the master model. Cards that fail to parse are skipped and logged.
func (f *FallbackCollection) Load(ctx context.Context) error {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", f.dir, err)
	}

	var people []*Person
	var subdirs []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(f.dir, entry.Name())
		if entry.IsDir() {
			subdirs = append(subdirs, path)
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), vcfExt) {
			continue
		}

		found, err := DecodeFile(path)
		if err != nil {
			var pathErr *os.PathError
			if errors.As(err, &pathErr) {
				return err
			}
			f.binding.Log().Warn("skipping unreadable vcard", "path", path, "error", err)
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		for _, p := range found {
			if p.UID() == "" {
				p.SetUID(stem)
			}
			people = append(people, p)
		}
	}

	owned := f.Owned()
	for _, p := range people {
		if _, ok := owned[p.UID()]; ok {
			continue
		}
		if err := f.AddExisting(p); err != nil {
			return err
		}
	}
	for _, sub := range subdirs {
		if f.spawned[sub] {
			continue
		}
		f.spawned[sub] = true
		f.binding.Spawn(KindFallback, FallbackParams{Dir: sub})
	}

	f.binding.Log().Debug("vcard directory loaded",
		"dir", f.dir,
		"persons", len(people),
		"subdirectories", len(subdirs),
	)
	return nil
}

// Reload drops the loaded persons and loads again.
func (f *FallbackCollection) Reload(ctx context.Context) error {
	f.ForgetAll()
	return f.Load(ctx)
}

// Clear unlinks every *.vcf at the root directory and withdraws the loaded
// persons. Subdirectories are left alone.
func (f *FallbackCollection) Clear(context.Context) error {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", f.dir, err)
	}
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), vcfExt) {
			continue
		}
		if err := os.Remove(filepath.Join(f.dir, entry.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	f.ForgetAll()
	return errors.Join(errs...)
}

// Save writes <uid>.vcf under the root directory.
func (f *FallbackCollection) Save(p *Person) error {
	path, err := f.pathFor(p)
	if err != nil {
		return err
	}
	data, err := Marshal(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, dirPerm); err != nil {
		return fmt.Errorf("creating %s: %w", f.dir, err)
	}
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// AddNew assigns a UID if needed, writes the card and adds the person.
func (f *FallbackCollection) AddNew(p *Person) error {
	if p.UID() == "" {
		p.SetUID(uuid.NewString())
	}
	if err := f.Save(p); err != nil {
		return err
	}
	return f.AddExisting(p)
}

// Remove is not supported.
func (f *FallbackCollection) Remove(*Person) error { return collection.ErrUnsupported }

// Edit is not supported.
func (f *FallbackCollection) Edit(*Person) error { return collection.ErrUnsupported }

func (f *FallbackCollection) pathFor(p *Person) (string, error) {
	uid := p.UID()
	if uid == "" {
		return "", ErrMissingUID
	}
	if uid == "." || uid == ".." || strings.ContainsAny(uid, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidUID, uid)
	}
	return filepath.Join(f.dir, uid+vcfExt), nil
}
