// Package extension defines the records that flow through the pipeline:
// the input [Extension] and the derived [SourceControlInfo].
package extension

// DefaultType is the type tag of records the resolver enriches.
const DefaultType = "Extension"

// Extension is an input record describing a cataloged package. It is read,
// never modified.
type Extension struct {
	Type     string   `json:"type,omitempty" yaml:"type,omitempty"`
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	Metadata Metadata `json:"metadata" yaml:"metadata"`
}

// Metadata is the optional metadata block of an [Extension].
type Metadata struct {
	SourceControl string `json:"sourceControl,omitempty" yaml:"sourceControl,omitempty"`
	Maven         *Maven `json:"maven,omitempty" yaml:"maven,omitempty"`
}

// Maven holds Maven coordinates.
type Maven struct {
	GroupID    string `json:"groupId,omitempty" yaml:"groupId,omitempty"`
	ArtifactID string `json:"artifactId,omitempty" yaml:"artifactId,omitempty"`
}

// SourceControlURL returns the repository URL, or "".
func (e *Extension) SourceControlURL() string {
	return e.Metadata.SourceControl
}

// ArtifactID returns the Maven artifact id, or "".
func (e *Extension) ArtifactID() string {
	if e.Metadata.Maven == nil {
		return ""
	}
	return e.Metadata.Maven.ArtifactID
}

// TypeOrDefault returns Type, or [DefaultType] when unset.
func (e *Extension) TypeOrDefault() string {
	if e.Type == "" {
		return DefaultType
	}
	return e.Type
}

// Label names the record in logs.
func (e *Extension) Label() string {
	switch {
	case e.Name != "":
		return e.Name
	case e.ArtifactID() != "":
		return e.ArtifactID()
	default:
		return e.SourceControlURL()
	}
}
