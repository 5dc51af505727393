package errors

import (
	"strings"
	"unicode"
)

// maxNameLength is the longest author or package name the public registry
// accepts.
const maxNameLength = 64

// ValidateName checks an author or package name against the registry's
// naming rules: lowercase ASCII letters, digits and hyphens, at most 64
// characters. Upper-case input is rejected rather than folded so callers can
// tell users exactly what to fix.
func ValidateName(kind, name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "%s name cannot be empty", kind)
	}
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidPackage, "%s name too long (max %d characters)", kind, maxNameLength)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
		case unicode.IsUpper(r):
			return New(ErrCodeInvalidPackage, "%s name must be lowercase: %q", kind, name)
		default:
			return New(ErrCodeInvalidPackage, "%s name contains invalid character %q", kind, r)
		}
	}
	return nil
}

// ValidatePackageRef validates an "author/name" pair as typed on the command
// line or in an API path.
func ValidatePackageRef(ref string) (author, name string, err error) {
	author, name, ok := strings.Cut(ref, "/")
	if !ok {
		return "", "", New(ErrCodeInvalidPackage, "expected author/name, got %q", ref)
	}
	if err := ValidateName("author", strings.ToLower(author)); err != nil {
		return "", "", err
	}
	if err := ValidateName("package", strings.ToLower(name)); err != nil {
		return "", "", err
	}
	return author, name, nil
}

// ValidateManifestFilename rejects names that cannot be a manifest: empty,
// containing a path separator, or not ending in .toml.
func ValidateManifestFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidManifest, "manifest filename cannot be empty")
	}
	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidManifest, "manifest filename cannot contain path separators")
	}
	if !strings.HasSuffix(filename, ".toml") {
		return New(ErrCodeInvalidManifest, "manifest must be a .toml file: %q", filename)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	for _, r := range rawURL {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "URL contains invalid characters")
		}
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}
	return nil
}
