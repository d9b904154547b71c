// Package graph stores enriched records in the content graph.
//
// The content graph is the downstream consumer of the pipeline: every
// [extension.SourceControlInfo] is emitted as one node, upserted by its
// deterministic id so reruns overwrite rather than duplicate.
//
// # Backends
//
//   - [MemoryStore]: in-process map, used by tests, dry runs and the read API
//   - [MongoStore]: one document per record in a MongoDB collection, keyed
//     by _id = record id
//
// # Patching
//
// The crop stage may finish after a record was emitted and name its output
// differently from the prediction the record carries. [Store.SetProjectImage]
// rewrites that single field. ProjectImage is not covered by the content
// digest, so patching never changes a record's digest.
package graph
