// Package enrich turns input extension records into source-control records.
//
// For every record of the configured type that names a repository, the
// [Resolver] queries repository metadata, picks the descriptor file, decides
// whether the repository has a customized social image, derives the record's
// id and content digest, hands the social image to the fetch stage and emits
// the result to the content graph.
//
// # Descriptor resolution
//
// The metadata client returns up to three directory listings (repository
// root, artifact-id subfolder, shortened subfolder). [ResolveDescriptor]
// merges them by path and keeps entries named after the descriptor file.
// Exactly one match yields a descriptor URL; zero or several yield none.
// An ambiguous match is not an error.
//
// # Degraded mode
//
// Without a token the metadata client returns only owner and project. The
// record is still emitted, with a warning, so a local build without
// credentials produces a complete if sparse graph.
package enrich
