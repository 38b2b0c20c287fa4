// Package middleware provides the HTTP middleware chain for recview.
//
// It includes:
//   - Structured request logging through zerolog, with log-injection safe fields
//   - Prometheus request metrics labeled by gorilla/mux route template
//   - gzip compression for the listing page and JSON, never for video bodies
package middleware
