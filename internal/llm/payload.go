package llm

import (
	"github.com/tidwall/sjson"

	"github.com/modalyze/modalyze/internal/media"
)

// anthropicMaxTokens caps completion length on the Anthropic Messages API,
// which requires the field.
const anthropicMaxTokens = 4096

// geminiPayload builds a generateContent body carrying the prompt and one
// inline media part.
func geminiPayload(systemPrompt, userPrompt, mimeType, data string) []byte {
	body := []byte(`{}`)
	body, _ = sjson.SetBytes(body, "system_instruction.parts.0.text", systemPrompt)
	body, _ = sjson.SetBytes(body, "contents.0.role", "user")
	body, _ = sjson.SetBytes(body, "contents.0.parts.0.text", userPrompt)
	body, _ = sjson.SetBytes(body, "contents.0.parts.1.inline_data.mime_type", mimeType)
	body, _ = sjson.SetBytes(body, "contents.0.parts.1.inline_data.data", data)
	body, _ = sjson.SetBytes(body, "generationConfig.temperature", 0)
	return body
}

// openaiChatPayload builds a chat completions body with the image attached
// as a data URL. Azure requests leave model empty because the deployment is
// addressed in the URL.
func openaiChatPayload(model, systemPrompt, userPrompt, imageURL string) []byte {
	body := []byte(`{}`)
	if model != "" {
		body, _ = sjson.SetBytes(body, "model", model)
	}
	body, _ = sjson.SetBytes(body, "messages.0.role", "system")
	body, _ = sjson.SetBytes(body, "messages.0.content", systemPrompt)
	body, _ = sjson.SetBytes(body, "messages.1.role", "user")
	body, _ = sjson.SetBytes(body, "messages.1.content.0.type", "text")
	body, _ = sjson.SetBytes(body, "messages.1.content.0.text", userPrompt)
	body, _ = sjson.SetBytes(body, "messages.1.content.1.type", "image_url")
	body, _ = sjson.SetBytes(body, "messages.1.content.1.image_url.url", imageURL)
	body, _ = sjson.SetBytes(body, "temperature", 0)
	return body
}

// anthropicImagePayload builds a Messages API body with the image attached
// as a base64 source block.
func anthropicImagePayload(model, systemPrompt, userPrompt, data string) []byte {
	body := []byte(`{}`)
	body, _ = sjson.SetBytes(body, "model", model)
	body, _ = sjson.SetBytes(body, "max_tokens", anthropicMaxTokens)
	body, _ = sjson.SetBytes(body, "system", systemPrompt)
	body, _ = sjson.SetBytes(body, "messages.0.role", "user")
	body, _ = sjson.SetBytes(body, "messages.0.content.0.type", "text")
	body, _ = sjson.SetBytes(body, "messages.0.content.0.text", userPrompt)
	body, _ = sjson.SetBytes(body, "messages.0.content.1.type", "image")
	body, _ = sjson.SetBytes(body, "messages.0.content.1.source.type", "base64")
	body, _ = sjson.SetBytes(body, "messages.0.content.1.source.media_type", media.ImageMIME)
	body, _ = sjson.SetBytes(body, "messages.0.content.1.source.data", data)
	body, _ = sjson.SetBytes(body, "temperature", 0)
	return body
}
