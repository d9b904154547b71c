package github

// TreeEntry is one file or directory in a repository tree listing.
// Path is relative to the repository root.
type TreeEntry struct {
	Path string `json:"path"`
}

// Listings holds the metadata-directory listings probed at the three
// candidate locations. A location that does not exist has a nil slice.
type Listings struct {
	Root           []TreeEntry `json:"root,omitempty"`
	Subfolder      []TreeEntry `json:"subfolder,omitempty"`
	ShortSubfolder []TreeEntry `json:"shortSubfolder,omitempty"`
}

// All returns the three listings concatenated in probe order.
func (l Listings) All() []TreeEntry {
	all := make([]TreeEntry, 0, len(l.Root)+len(l.Subfolder)+len(l.ShortSubfolder))
	all = append(all, l.Root...)
	all = append(all, l.Subfolder...)
	return append(all, l.ShortSubfolder...)
}

// Metadata is the result of one source-control lookup.
//
// In degraded mode (no token) only URL, Owner and Project are set and
// Degraded is true. Otherwise every field reflects the API response;
// Issues is a pointer so that "no data" and "zero open issues" differ.
type Metadata struct {
	URL     string `json:"url"`
	Owner   string `json:"owner"`
	Project string `json:"project"`

	Degraded bool `json:"degraded,omitempty"`

	Issues            *int     `json:"issues,omitempty"`
	DefaultBranch     string   `json:"defaultBranch,omitempty"`
	Listings          Listings `json:"listings"`
	OpenGraphImageURL string   `json:"openGraphImageUrl,omitempty"`
	OwnerAvatarURL    string   `json:"ownerAvatarUrl,omitempty"`
}
