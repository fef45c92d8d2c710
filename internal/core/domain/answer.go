package domain

// PreviewLength is the number of characters of chunk text kept in a citation.
const PreviewLength = 200

// PreviewMarker is appended to citation previews that were cut short.
const PreviewMarker = "..."

// NoDocumentsAnswer is returned in place of a generated answer when
// retrieval finds nothing to ground it on.
const NoDocumentsAnswer = "No documents found. Please upload documents first."

// Citation points from an answer back to a chunk that supported it.
type Citation struct {
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	ChunkID       string  `json:"chunk_id"`
	PageNumber    int     `json:"page_number"`
	TextPreview   string  `json:"text_preview"`
	Score         float64 `json:"score"`
}

// Answer is the output of answer composition.
type Answer struct {
	// Text is the generated answer.
	Text string

	// Citations follow the order of the retrieval result.
	Citations []Citation

	// ContextCount is the number of chunks placed in the prompt.
	ContextCount int

	// Model identifies the generation model used. Empty when no
	// generation call was made.
	Model string
}

// Preview truncates text to PreviewLength characters, appending
// PreviewMarker when anything was cut.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= PreviewLength {
		return text
	}
	return string(runes[:PreviewLength]) + PreviewMarker
}

// GroundedAnswerInstruction is the default instruction placed before the
// numbered context blocks of an answer prompt.
const GroundedAnswerInstruction = `You are a helpful assistant answering questions about the user's documents.
Answer the question using only the information in the context below.
If the answer is not contained in the context, say explicitly that the provided documents do not contain the answer.
Cite the sources you use as [Source N], matching the numbered context blocks.
Be concise.`
