// Package loader resolves plugin locators to on-disk cache buckets.
//
// A locator is either a VCS URL or path ending in .git, or a bare registry
// name. Resolution is cache-first: a bucket at
// <build>/cache/plugins/<hash>/<id>/<version> whose plugin.xml declares an id
// satisfies the request without touching the network. Misses are fetched into
// the scratch directory, validated and moved into place.
//
// All requests go through one worker, so fetches never overlap.
package loader
