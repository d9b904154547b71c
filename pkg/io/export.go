package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/matzehuels/scmenrich/pkg/assets"
	"github.com/matzehuels/scmenrich/pkg/extension"
)

// Document is the export document.
type Document struct {
	SourceControlInfo []*extension.SourceControlInfo `json:"sourceControlInfo"`
	Files             []File                         `json:"files"`
}

// File is the exported view of an asset.
type File struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ParentID  string `json:"parentId,omitempty"`
	URL       string `json:"url,omitempty"`
	MediaType string `json:"mediaType"`
	Size      int64  `json:"size"`
	Digest    string `json:"digest"`
}

// NewDocument builds a sorted document from records and assets.
func NewDocument(recs []*extension.SourceControlInfo, files []*assets.Asset) *Document {
	doc := &Document{
		SourceControlInfo: make([]*extension.SourceControlInfo, len(recs)),
		Files:             make([]File, len(files)),
	}
	copy(doc.SourceControlInfo, recs)
	for i, a := range files {
		doc.Files[i] = File{
			ID:        a.ID,
			Name:      a.Name,
			ParentID:  a.ParentID,
			URL:       a.URL,
			MediaType: a.MediaType,
			Size:      a.Size,
			Digest:    a.Digest,
		}
	}
	doc.sort()
	return doc
}

func (d *Document) sort() {
	sort.Slice(d.SourceControlInfo, func(i, j int) bool {
		return d.SourceControlInfo[i].ID < d.SourceControlInfo[j].ID
	})
	sort.Slice(d.Files, func(i, j int) bool {
		if d.Files[i].Name != d.Files[j].Name {
			return d.Files[i].Name < d.Files[j].Name
		}
		return d.Files[i].ID < d.Files[j].ID
	})
}

// WriteDocument encodes doc as indented JSON.
func WriteDocument(doc *Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportDocument writes doc to path, replacing any existing file
// atomically.
func ExportDocument(doc *Document, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.json")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteDocument(doc, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// ReadDocument decodes an export document from r.
func ReadDocument(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	doc.sort()
	return &doc, nil
}

// ImportDocument reads the export document at path.
func ImportDocument(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	doc, err := ReadDocument(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// FileByName returns the file named name.
func (d *Document) FileByName(name string) (File, bool) {
	for _, f := range d.Files {
		if f.Name == name {
			return f, true
		}
	}
	return File{}, false
}

// FileByURL returns the file downloaded from url.
func (d *Document) FileByURL(url string) (File, bool) {
	for _, f := range d.Files {
		if url != "" && f.URL == url {
			return f, true
		}
	}
	return File{}, false
}
