package transcribe

// Exports for testing. These allow black-box tests to inject dependencies
// without modifying the public API.

// NewTestClient creates an OpenAIClient around a mock audioTranscriber.
func NewTestClient(client audioTranscriber, opts ...ClientOption) *OpenAIClient {
	return newOpenAIClient(client, opts...)
}
