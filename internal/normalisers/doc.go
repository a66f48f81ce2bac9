// Package normalisers groups the converters that turn raw CMS documents
// into canonical text.
//
//   - cms: per-type canonical text and content hash for profile, project,
//     aiProject and aiShowcase documents
//   - markdown: Markdown stripping shared by long-form text fields
package normalisers
