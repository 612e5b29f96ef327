package document

import (
	"slices"
	"strconv"

	"github.com/google/uuid"

	"github.com/matzehuels/sitecraft/pkg/errors"
)

// Type is the closed tag identifying a component family.
type Type string

// Component families.
const (
	Header         Type = "header"
	Footer         Type = "footer"
	Hero           Type = "hero"
	Card           Type = "card"
	Title          Type = "title"
	ImageText      Type = "imageText"
	JobForm        Type = "jobForm"
	ContactForm    Type = "contactForm"
	Grid           Type = "grid"
	Testimonials   Type = "testimonials"
	PropertySlider Type = "propertySlider"
	Filter         Type = "filter"
	Partners       Type = "partners"
	Video          Type = "video"
	Spacer         Type = "spacer"
	Halfs          Type = "halfs"
)

// Types lists every component family, in registry order.
var Types = []Type{
	Header, Footer, Hero, Card, Title, ImageText, JobForm, ContactForm,
	Grid, Testimonials, PropertySlider, Filter, Partners, Video, Spacer, Halfs,
}

// Valid reports whether t is a known component family.
func (t Type) Valid() bool { return slices.Contains(Types, t) }

// BaseName returns the variant base name of the family ("hero" for Hero).
func (t Type) BaseName() string { return string(t) }

// Variant returns the variant name for number n, e.g. Hero.Variant(1) == "hero1".
func (t Type) Variant(n int) string { return VariantName(t.BaseName(), n) }

// ParseType converts a string to a Type, rejecting unknown families.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", errors.New(errors.ErrCodeInvalidInput, "unknown component type: %q", s)
	}
	return t, nil
}

// VariantName builds "{baseName}{number}".
func VariantName(base string, n int) string { return base + strconv.Itoa(n) }

// ParseVariant splits a variant name into its base name and number.
func ParseVariant(name string) (base string, n int, err error) {
	if err := errors.ValidateVariantName(name); err != nil {
		return "", 0, err
	}
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	n, err = strconv.Atoi(name[i:])
	if err != nil {
		return "", 0, errors.Wrap(errors.ErrCodeInvalidVariant, err, "variant number in %q", name)
	}
	if VariantName(name[:i], n) != name {
		return "", 0, errors.New(errors.ErrCodeInvalidVariant, "variant %q is not canonical, want %q", name, VariantName(name[:i], n))
	}
	return name[:i], n, nil
}

// CheckVariant verifies that name is a well-formed variant of family t.
func CheckVariant(t Type, name string) error {
	if !t.Valid() {
		return errors.New(errors.ErrCodeInvalidInput, "unknown component type: %q", t)
	}
	base, _, err := ParseVariant(name)
	if err != nil {
		return err
	}
	if base != t.BaseName() {
		return errors.New(errors.ErrCodeInvalidVariant, "variant %q does not belong to type %q", name, t)
	}
	return nil
}

// Layout is the grid-canvas placement hint of an instance. Row loosely
// tracks Position, but several instances may share a row in different
// columns.
type Layout struct {
	Row  int `json:"row" bson:"row"`
	Col  int `json:"col" bson:"col"`
	Span int `json:"span" bson:"span"`
}

// Instance is one placed, configured occurrence of a component family.
type Instance struct {
	ID            string         `json:"id" bson:"id"`
	Type          Type           `json:"type" bson:"type"`
	ComponentName string         `json:"componentName" bson:"componentName"`
	Data          map[string]any `json:"data,omitempty" bson:"data,omitempty"`
	Position      int            `json:"position" bson:"position"`
	Layout        Layout         `json:"layout" bson:"layout"`
}

// NewID returns a fresh globally unique instance id.
func NewID() string { return uuid.NewString() }

// NewInstance builds an instance of family t using variant number n.
func NewInstance(t Type, n int) Instance {
	return Instance{
		ID:            NewID(),
		Type:          t,
		ComponentName: t.Variant(n),
		Layout:        Layout{Span: 12},
	}
}
