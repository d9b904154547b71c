// Package io reads input extension records and writes the export document.
//
// # Input
//
// Records are accepted as a JSON array, as a JSON object with an
// "extensions" array, or as the YAML equivalents of either:
//
//	[
//	  {
//	    "name": "Widget",
//	    "metadata": {
//	      "sourceControl": "https://github.com/acme/widget",
//	      "maven": {"groupId": "io.acme", "artifactId": "widget-ext"}
//	    }
//	  }
//	]
//
// A record without "type" is an Extension.
//
// # Export
//
// The export document is a snapshot of the content graph and the asset
// store:
//
//	{
//	  "sourceControlInfo": [{"id": "...", "url": "...", "contentDigest": "sha256:..."}],
//	  "files": [{"id": "...", "name": "smartcrop-39ad4dec-e606.png", "parentId": "..."}]
//	}
//
// Records are sorted by id and files by name. Files carry neither their
// local path nor their creation time, so rerunning over unchanged input
// writes identical bytes.
package io
