// Package connectors provides ContentSource implementations that read CMS
// documents. Each connector knows how to fetch documents from one place:
//
//   - sanity: the Sanity HTTP query API
//   - filesystem: a local NDJSON export or a directory of JSON documents
//
// Both speak the Sanity document shape (_id, _type, _rev, _updatedAt plus
// fields) and share the decoding helpers in this package.
package connectors
