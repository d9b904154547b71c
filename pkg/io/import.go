package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	scmerrors "github.com/matzehuels/scmenrich/pkg/errors"
	"github.com/matzehuels/scmenrich/pkg/extension"
)

// Format names an input encoding.
type Format string

const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

type wrapped struct {
	Extensions []*extension.Extension `json:"extensions" yaml:"extensions"`
}

// ReadExtensions decodes records from r. With [FormatAuto] the encoding is
// JSON when the first non-space byte opens an array or object, YAML
// otherwise.
func ReadExtensions(r io.Reader, format Format) ([]*extension.Extension, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if format == FormatAuto {
		format = FormatYAML
		if trimmed[0] == '[' || trimmed[0] == '{' {
			format = FormatJSON
		}
	}

	var exts []*extension.Extension
	switch format {
	case FormatJSON:
		exts, err = decodeJSON(trimmed)
	case FormatYAML:
		exts, err = decodeYAML(trimmed)
	default:
		return nil, scmerrors.New(scmerrors.ErrCodeInvalidInput, "unknown record format %q", format)
	}
	if err != nil {
		return nil, scmerrors.Wrap(scmerrors.ErrCodeInvalidInput, err, "decode %s records", format)
	}

	out := exts[:0]
	for _, e := range exts {
		if e != nil {
			out = append(out, e)
		}
	}
	return out, nil
}

func decodeJSON(data []byte) ([]*extension.Extension, error) {
	if data[0] == '{' {
		var w wrapped
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return w.Extensions, nil
	}
	var exts []*extension.Extension
	err := json.Unmarshal(data, &exts)
	return exts, err
}

func decodeYAML(data []byte) ([]*extension.Extension, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.MappingNode {
		var w wrapped
		if err := node.Decode(&w); err != nil {
			return nil, err
		}
		return w.Extensions, nil
	}
	var exts []*extension.Extension
	err := node.Decode(&exts)
	return exts, err
}

// ImportExtensions reads records from the file at path. The format follows
// the extension: .json, .yaml and .yml; anything else is sniffed.
func ImportExtensions(path string) ([]*extension.Extension, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	format := FormatAuto
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		format = FormatJSON
	case ".yaml", ".yml":
		format = FormatYAML
	}

	exts, err := ReadExtensions(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return exts, nil
}
