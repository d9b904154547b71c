package errors

import (
	"strings"
	"unicode"
)

// maxAssetNameLength bounds asset names derived from URL basenames.
const maxAssetNameLength = 255

// ValidateAssetName validates a name under which bytes are stored in the
// asset store. Names come from remote URL basenames, so the rules reject
// anything that could escape the store directory:
//   - No empty names, "." or ".."
//   - No control characters or null bytes
//   - No path separators
//   - Maximum length of 255 characters
func ValidateAssetName(name string) error {
	if name == "" || name == "." || name == ".." {
		return New(ErrCodeInvalidInput, "asset name cannot be empty")
	}

	if len(name) > maxAssetNameLength {
		return New(ErrCodeInvalidInput, "asset name too long (max %d characters)", maxAssetNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "asset name contains invalid control characters")
		}
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidInput, "asset name cannot contain path separators: %q", name)
	}

	return nil
}

// ValidatePath validates a file path within a repository for safety.
// Descriptor paths returned by the metadata API end up in URLs, so they
// must be relative and free of traversal sequences.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidInput, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidInput, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidInput, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidInput, "path cannot contain backslashes")
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
