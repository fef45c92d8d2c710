// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentStore, ChunkStore, ConversationStore: Record persistence
//   - EmbeddingService: Turns chunk and query text into vectors
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Answer generation. Without it, retrieval still works but ask fails.
//   - PromptStore: User-editable prompt templates. Defaults are embedded.
//   - PageEstimator: Page count heuristics per file type. Defaults to one page.
//   - SchedulerStore: Persisted task state for the background scheduler.
//   - PipelineMetrics: Counters and latencies for the pipeline.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
