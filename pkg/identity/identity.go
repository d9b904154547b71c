// Package identity derives stable identifiers and content digests.
//
// Both are pure functions of their inputs, so re-running the pipeline over
// unchanged records reproduces every id and digest, and downstream
// consumers can detect "no change" by comparing digests.
//
// Ids are name-based UUIDs (version 5) in a namespace private to this
// module. Digests are SHA-256 over the RFC 8785 canonical JSON form of a
// value, so map key order and struct field order never change the result.
package identity

import (
	"encoding/json"
	"strings"

	jsoncanonicalizer "github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"

	"github.com/matzehuels/scmenrich/pkg/extension"
)

var (
	recordNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/matzehuels/scmenrich/source-control-info"))
	assetNamespace  = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/matzehuels/scmenrich/asset"))
)

// NodeID returns the id of the SourceControlInfo for owner/project.
// Neither GitHub component can contain "/", so distinct pairs never share
// a name.
func NodeID(owner, project string) string {
	return uuid.NewSHA1(recordNamespace, []byte(owner+"/"+project)).String()
}

// AssetID returns the id of an asset stored under parentID with the given
// name and content digest.
func AssetID(parentID, name, contentDigest string) string {
	return uuid.NewSHA1(assetNamespace, []byte(strings.Join([]string{parentID, name, contentDigest}, "|"))).String()
}

// Digest returns "sha256:<hex>" over the canonical JSON encoding of v.
func Digest(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	canon, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return "", err
	}
	return digest.FromBytes(canon).String(), nil
}

// ContentDigest returns the digest of a record's digested fields (see
// [extension.SourceControlInfo.DigestFields]). It cannot fail: the fields
// are plain strings and integers.
func ContentDigest(rec *extension.SourceControlInfo) string {
	d, err := Digest(rec.DigestFields())
	if err != nil {
		panic("identity: digest of record fields: " + err.Error())
	}
	return d
}

// Bytes returns the digest of raw content.
func Bytes(data []byte) string {
	return digest.FromBytes(data).String()
}
