// Package github fetches repository metadata from the GitHub GraphQL API.
//
// # Usage
//
//	client := github.NewClient(c, keyer, github.Config{Token: token})
//	meta, err := client.FetchSourceControl(ctx, "https://github.com/acme/widget", "widget-ext", false)
//
// One query per repository returns the open-issue count, the default
// branch, listings of the metadata directory (runtime/src/main/resources/META-INF/
// by default) at the repository root and under two artifact-derived
// subfolders, the social preview image URL, and the owner's avatar.
//
// # Degraded mode
//
// A client built without a token never touches the network.
// [Client.FetchSourceControl] returns only URL, owner and project with
// Degraded set, and no error. Callers decide how to report it.
//
// # Errors
//
// GraphQL errors are API_ERROR (NOT_FOUND for unknown repositories).
// Responses that cannot be decoded or lack the repository, owner or issues
// objects are CONTRACT_VIOLATION: they mean the API changed shape.
// Transport failures and 5xx responses are retried before surfacing as
// NETWORK_ERROR.
//
// # Caching
//
// Successful responses are cached under [cache.Keyer.MetadataKey]. Pass
// refresh=true to bypass the cache. Degraded results are never cached.
package github
