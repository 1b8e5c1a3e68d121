// Package e2e holds end-to-end tests against a real PostgreSQL. Run them
// with `go test -tags integration ./internal/e2e/`; Docker is required.
package e2e
