// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the synchroniser and retriever to function:
//
//   - ContentSource: Reads documents from the CMS
//   - Normaliser: Turns a CMS document into hashable canonical text
//   - PostProcessorPipeline: Splits canonical text into chunks
//   - EmbeddingService: Generates vector embeddings
//   - VectorStore: Chunk and sync state persistence with similarity search
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - ContentWatcher: Pushes change events. Without it, only webhooks and manual syncs update the index.
//   - SyncLock: Serialises sync runs. Without it, concurrent runs are last-write-wins.
//   - SyncReportStore: Persists run reports. Without it, only the in-process last report is kept.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
