// Package postgres provides a PostgreSQL implementation of driven.RecordStore
// backed by a pgx connection pool.
//
// Embeddings are stored as real[] columns and citations as jsonb. The schema
// is created on connect. State changes are conditional updates on the
// current state, so concurrent jobs cannot both claim a document.
package postgres
