// Package postgres implements the vector store and sync report ports on
// PostgreSQL with the pgvector extension, using the layout of a Supabase
// "documents" table:
//
//	documents(id text primary key, content text, embedding vector, metadata jsonb)
//
// Source identity lives in metadata ("source", "sourceId", "chunkIndex", "title")
// so the table stays compatible with existing match_documents style functions.
// Sync state and run reports are kept in rag_sync_state and rag_sync_reports.
//
// Similarity is 1 - (embedding <=> query), the cosine distance operator.
package postgres
