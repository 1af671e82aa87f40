package port

// GenerateOptions control a single completion call.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// Generator is a text-completion service, consulted when no stored answer
// is confident enough to return directly.
type Generator interface {
	// Generate produces text for the given prompts.
	Generate(systemPrompt, userPrompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
