package enrich

import (
	"net/url"
	"sort"
	"strings"

	scmerrors "github.com/matzehuels/scmenrich/pkg/errors"
	"github.com/matzehuels/scmenrich/pkg/integrations/github"
)

const (
	// DefaultDescriptorFile is the extension descriptor looked for in the
	// metadata listings.
	DefaultDescriptorFile = "quarkus-extension.yaml"

	// DefaultCustomImageMarker occurs in the host of user-uploaded social
	// images. Generated previews come from opengraph.githubassets.com.
	DefaultCustomImageMarker = "githubusercontent"

	githubBaseURL = "https://github.com/"
)

// ResolveDescriptor returns the repository-relative path of the single
// entry named fileName across entries. Entries listed more than once count
// once. It returns "" when there is no match or more than one.
func ResolveDescriptor(entries []github.TreeEntry, fileName string) string {
	suffix := "/" + fileName
	seen := make(map[string]bool, len(entries))
	var matches []string
	for _, e := range entries {
		if seen[e.Path] || scmerrors.ValidatePath(e.Path) != nil {
			continue
		}
		seen[e.Path] = true
		if strings.HasSuffix(e.Path, suffix) {
			matches = append(matches, e.Path)
		}
	}
	if len(matches) != 1 {
		return ""
	}
	return matches[0]
}

// Candidates returns every distinct descriptor path across entries that
// [ResolveDescriptor] considers, sorted. It is used to explain ambiguous
// matches in logs.
func Candidates(entries []github.TreeEntry, fileName string) []string {
	suffix := "/" + fileName
	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		if seen[e.Path] || scmerrors.ValidatePath(e.Path) != nil {
			continue
		}
		seen[e.Path] = true
		if strings.HasSuffix(e.Path, suffix) {
			out = append(out, e.Path)
		}
	}
	sort.Strings(out)
	return out
}

// DescriptorURL builds the browse URL of path on branch in owner/project.
// It is built from the parsed coordinates so deep links in the record's
// source-control URL do not leak into it.
func DescriptorURL(owner, project, branch, path string) string {
	return githubBaseURL + owner + "/" + project + "/blob/" + branch + "/" + path
}

// IsCustomizedImage reports whether imageURL is a user-uploaded social
// image, judged by marker occurring in its host.
func IsCustomizedImage(imageURL, marker string) bool {
	if imageURL == "" || marker == "" {
		return false
	}
	u, err := url.Parse(imageURL)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.Contains(u.Host, marker)
}
