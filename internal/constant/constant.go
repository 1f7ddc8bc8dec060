// Package constant defines provider family identifiers used throughout the
// media analyzer CLI. These constants identify the AI service a model routes
// to, ensuring consistent naming across the application.
package constant

const (
	// Gemini represents the Google Gemini provider family.
	Gemini = "gemini"

	// OpenAI represents the OpenAI provider family.
	OpenAI = "openai"

	// Anthropic represents the Anthropic provider family.
	Anthropic = "anthropic"

	// Azure represents the Azure OpenAI provider family.
	Azure = "azure"
)

// AuthMethodOAuth and friends name how a Google-family request was authenticated.
const (
	AuthMethodOAuth  = "OAuth"
	AuthMethodAPIKey = "API Key"
	AuthMethodNone   = "None"
)
