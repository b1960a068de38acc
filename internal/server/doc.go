// Package server hosts the Fiber diagnostics service that sits in front of
// the content engine. It owns the middleware chain (recover, request IDs,
// access logging) and the mapping from content error kinds to HTTP status
// codes; the concrete endpoints live in the routes subpackage so the CLI can
// choose which surfaces to mount. Keep exports narrow and accept explicit
// dependencies.
package server
