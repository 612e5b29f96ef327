package errors

import (
	"strings"
	"testing"
)

func TestValidateTenantID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "acme", false},
		{"valid with dash", "acme-realty", false},
		{"valid with digits", "tenant_42", false},
		{"valid with dot", "acme.eu", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 129), true},
		{"hidden", ".acme", true},
		{"slash", "acme/other", true},
		{"traversal", "../etc", true},
		{"space", "acme realty", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTenantID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTenantID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidTenant) {
				t.Errorf("ValidateTenantID(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateSlug(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"homepage", "homepage", false},
		{"with dash", "about-us", false},
		{"nested", "projects/featured", false},
		{"digits", "2024-launch", false},

		{"empty", "", true},
		{"uppercase", "Homepage", true},
		{"leading slash", "/homepage", true},
		{"trailing slash", "homepage/", true},
		{"traversal", "a/../b", true},
		{"control char", "home\npage", true},
		{"too long", strings.Repeat("a", 201), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSlug(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSlug(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidSlug) {
				t.Errorf("ValidateSlug(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateVariantName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"hero1", "hero1", false},
		{"camel case", "imageText12", false},
		{"ten", "hero10", false},

		{"empty", "", true},
		{"no number", "hero", true},
		{"number only", "12", true},
		{"number first", "1hero", true},
		{"dash", "hero-1", true},
		{"trailing letters", "hero1a", true},
		{"leading zero", "hero01", true},
		{"zero padded", "footer007", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVariantName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateVariantName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateDataPath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"single key", "title", false},
		{"nested", "property.title", false},
		{"array index", "items.0.label", false},

		{"empty", "", true},
		{"leading dot", ".title", true},
		{"trailing dot", "title.", true},
		{"double dot", "a..b", true},
		{"control char", "a.\x00", true},
		{"too long", strings.Repeat("a", 257), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDataPath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDataPath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPath) {
				t.Errorf("ValidateDataPath(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidInput,
		ErrCodeInvalidSlug,
		ErrCodeInvalidTenant,
		ErrCodeInvalidVariant,
		ErrCodeInvalidPath,
		ErrCodeNotFound,
		ErrCodeTenantNotFound,
		ErrCodePageNotFound,
		ErrCodeInstanceNotFound,
		ErrCodeNetwork,
		ErrCodeTimeout,
		ErrCodeStorage,
		ErrCodeInternal,
		ErrCodeUnsupported,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
