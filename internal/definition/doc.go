// Package definition loads starting documents from definition files.
//
// Two formats are supported:
//   - CUE (.cue files or a directory of them): the value at "document", or
//     the root value when there is no such field, is unified with the
//     embedded #Document schema before decoding.
//   - YAML (.yaml, .yml, .json): decoded strictly, unknown keys rejected.
//
// Errors carry a code and, where the source provides one, a file position.
// Loaded documents are not validated against the readiness rules; that is
// the validation package's job.
package definition
