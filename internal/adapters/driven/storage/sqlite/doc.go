// Package sqlite provides a SQLite-based implementation of the vector store
// and sync report ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. A single database connection backs:
//
//   - VectorStore: chunk, embedding and sync state persistence with cosine search
//   - SyncReportStore: history of sync runs
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Search
//
// Embeddings are stored as little-endian float32 blobs and searched with a
// brute-force cosine scan. A portfolio index holds a few hundred chunks at most.
//
// # Data Location
//
// By default, the database is stored at ~/.portfolio-rag/data/index.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
