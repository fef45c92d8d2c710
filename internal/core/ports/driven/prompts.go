package driven

// PromptGroundedAnswer names the instruction placed before the context
// blocks of every answer prompt. It has no format placeholders.
const PromptGroundedAnswer = "grounded_answer"

// PromptStore serves prompt templates by name.
type PromptStore interface {
	// Load returns the named template, falling back to a built-in default
	// when one exists. Unknown names are an error.
	Load(name string) (string, error)

	// Reload drops cached templates so edits take effect.
	Reload()
}
