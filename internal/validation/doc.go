// Package validation computes categorized findings for a document.
//
// Validate is a pure function: the result depends only on its argument and
// is recomputed from scratch after every change rather than patched. Findings
// never block editing; the session uses them only to gate Finalize.
package validation
