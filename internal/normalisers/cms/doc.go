// Package cms normalises portfolio CMS documents (profile, project,
// aiProject, aiShowcase) into canonical text and a content hash.
//
// Each document type is decoded into a typed variant and rendered as
// labelled sections in a fixed field order. Presentation-only fields
// (ordering, slugs, images, revision metadata) are never read, so editing
// them does not change the hash and does not trigger re-embedding.
package cms
