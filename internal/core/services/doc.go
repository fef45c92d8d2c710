// Package services implements the driving port interfaces.
//
// The question-answering pipeline lives here: the IngestionOrchestrator
// chunks documents and schedules their embedding, the Retriever embeds
// chunks and ranks them against a query, the AnswerComposer turns ranked
// chunks into a cited answer and the QAService ties retrieval and
// composition to the user's conversation history.
//
// Services depend only on ports and have no knowledge of concrete
// providers or storage backends.
package services
