// Package domain defines the core business entities for docqa.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An uploaded document with its extracted text and processing state
//   - Chunk: A retrievable slice of a document's text, optionally embedded
//   - RetrievalResult: Scored chunks returned by similarity search
//   - Answer: Generated answer text with citations
//   - Conversation and Question: Persisted question/answer history
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
