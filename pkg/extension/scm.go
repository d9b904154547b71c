package extension

// SourceControlInfo is the record derived from an extension's repository.
//
// SocialImage links to a fetched asset by URL; ProjectImage links to the
// cropped asset by name. ProjectImage is set exactly when SocialImage is.
type SourceControlInfo struct {
	ID            string `json:"id" bson:"_id"`
	URL           string `json:"url" bson:"url"`
	Owner         string `json:"owner,omitempty" bson:"owner,omitempty"`
	Project       string `json:"project,omitempty" bson:"project,omitempty"`
	Issues        *int   `json:"issues,omitempty" bson:"issues,omitempty"`
	OwnerImageURL string `json:"ownerImageUrl,omitempty" bson:"ownerImageUrl,omitempty"`

	ExtensionYamlURL string `json:"extensionYamlUrl,omitempty" bson:"extensionYamlUrl,omitempty"`
	SocialImage      string `json:"socialImage,omitempty" bson:"socialImage,omitempty"`
	ProjectImage     string `json:"projectImage,omitempty" bson:"projectImage,omitempty"`

	ContentDigest string `json:"contentDigest" bson:"contentDigest"`
}

// DigestFields returns the fields covered by the content digest: everything
// except ContentDigest itself and ProjectImage, which is derived from
// SocialImage after the digest is computed.
func (s *SourceControlInfo) DigestFields() map[string]any {
	fields := map[string]any{
		"id":      s.ID,
		"url":     s.URL,
		"owner":   s.Owner,
		"project": s.Project,
	}
	if s.Issues != nil {
		fields["issues"] = *s.Issues
	}
	if s.OwnerImageURL != "" {
		fields["ownerImageUrl"] = s.OwnerImageURL
	}
	if s.ExtensionYamlURL != "" {
		fields["extensionYamlUrl"] = s.ExtensionYamlURL
	}
	if s.SocialImage != "" {
		fields["socialImage"] = s.SocialImage
	}
	return fields
}

// Clone returns a deep copy.
func (s *SourceControlInfo) Clone() *SourceControlInfo {
	c := *s
	if s.Issues != nil {
		n := *s.Issues
		c.Issues = &n
	}
	return &c
}
