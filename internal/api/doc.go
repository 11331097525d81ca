// Package api exposes completed audit results over HTTP: the rendered
// dashboard, the raw JSON reports, and a small read-only API. It serves
// whatever the report directory currently holds; it never triggers audits.
package api
