package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateTenantID validates a tenant identifier for safety.
// Tenant ids are used as file names and cache key segments, so they are
// restricted to a conservative character set:
//   - No empty ids
//   - Maximum length of 128 characters
//   - Letters, digits, '-', '_' and '.' only, not starting with '.'
func ValidateTenantID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidTenant, "tenant id cannot be empty")
	}
	if len(id) > 128 {
		return New(ErrCodeInvalidTenant, "tenant id too long (max 128 characters)")
	}
	if strings.HasPrefix(id, ".") {
		return New(ErrCodeInvalidTenant, "tenant id cannot start with '.'")
	}
	if !tenantIDRegex.MatchString(id) {
		return New(ErrCodeInvalidTenant, "invalid tenant id: %q", id)
	}
	return nil
}

var tenantIDRegex = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// slugRegex matches page slugs such as "homepage", "about-us" or "projects/featured".
var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*(/[a-z0-9][a-z0-9_-]*)*$`)

// ValidateSlug validates a page slug.
//
// The validation rules:
//   - No empty slugs
//   - Maximum length of 200 characters
//   - Lowercase letters, digits, '-', '_' and '/' separated segments
//   - No control characters or path traversal sequences
func ValidateSlug(slug string) error {
	if slug == "" {
		return New(ErrCodeInvalidSlug, "page slug cannot be empty")
	}
	if len(slug) > 200 {
		return New(ErrCodeInvalidSlug, "page slug too long (max 200 characters)")
	}
	for _, r := range slug {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidSlug, "page slug contains invalid control characters")
		}
	}
	if strings.Contains(slug, "..") {
		return New(ErrCodeInvalidSlug, "page slug cannot contain path traversal sequences (..)")
	}
	if !slugRegex.MatchString(slug) {
		return New(ErrCodeInvalidSlug, "invalid page slug: %q", slug)
	}
	return nil
}

// variantRegex matches "{baseName}{number}" variant names, e.g. "hero1",
// "imageText12". The number has no leading zeros so each name maps to exactly
// one (baseName, number) pair.
var variantRegex = regexp.MustCompile(`^[A-Za-z]+(0|[1-9][0-9]*)$`)

// ValidateVariantName validates the syntactic shape of a component variant name.
// Type compatibility is checked by the document package.
func ValidateVariantName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidVariant, "variant name cannot be empty")
	}
	if len(name) > 64 {
		return New(ErrCodeInvalidVariant, "variant name too long (max 64 characters)")
	}
	if !variantRegex.MatchString(name) {
		return New(ErrCodeInvalidVariant, "variant name must be {baseName}{number}: %q", name)
	}
	return nil
}

// ValidateDataPath validates a dot-separated data path such as "property.title".
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 256 characters
//   - No empty segments ("a..b", ".a", "a.")
//   - No control characters
func ValidateDataPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "data path cannot be empty")
	}

	const maxPathLength = 256
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "data path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "data path contains invalid characters")
		}
	}

	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			return New(ErrCodeInvalidPath, "data path has an empty segment: %q", path)
		}
	}
	return nil
}
