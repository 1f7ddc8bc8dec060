package llm

import (
	_ "embed"
	"fmt"

	"github.com/modalyze/modalyze/internal/media"
)

// Analysis modes for audio and video requests.
const (
	ModeTranscript  = "transcript"
	ModeDescription = "description"
)

// Default system prompts shipped with the binary. A custom system prompt
// set on the client replaces all three.
//
//go:embed prompts/image_system_prompt.md
var imageSystemPrompt string

//go:embed prompts/audio_system_prompt.md
var audioSystemPrompt string

//go:embed prompts/video_system_prompt.md
var videoSystemPrompt string

// systemPromptFor returns the system prompt for a media type, preferring
// the override when one is set.
func systemPromptFor(t media.Type, override string) string {
	if override != "" {
		return override
	}
	switch t {
	case media.TypeAudio:
		return audioSystemPrompt
	case media.TypeVideo:
		return videoSystemPrompt
	default:
		return imageSystemPrompt
	}
}

// imageUserPrompt appends the word-count instruction to the caller's prompt.
func imageUserPrompt(prompt string, wordCount int) string {
	return fmt.Sprintf("%s Please provide approximately %d words in your description.", prompt, wordCount)
}

// audioUserPrompt builds the request text for an audio mode. Transcript
// mode ignores the caller's prompt entirely.
func audioUserPrompt(mode, prompt string, wordCount int) (string, error) {
	switch mode {
	case ModeTranscript:
		return "Please transcribe this audio file and return only the transcript text.", nil
	case ModeDescription:
		if prompt != "" {
			return fmt.Sprintf("%s\n\nPlease analyze this audio content. Provide approximately %d words in your analysis.", prompt, wordCount), nil
		}
		return fmt.Sprintf("Please analyze and describe the content of this audio file. Provide approximately %d words in your analysis.", wordCount), nil
	default:
		return "", fmt.Errorf("invalid mode %q: use 'transcript' or 'description'", mode)
	}
}

// videoUserPrompt builds the request text for video analysis.
func videoUserPrompt(prompt string, wordCount int) string {
	if prompt != "" {
		return fmt.Sprintf("%s\n\nPlease analyze this video content including both visual and audio elements. Provide approximately %d words in your analysis.", prompt, wordCount)
	}
	return fmt.Sprintf("Please analyze and describe the content of this video file, including both visual and audio elements. Provide approximately %d words in your analysis.", wordCount)
}

// DefaultAudioPrompt is the canned description-mode prompt used when the
// caller supplies none.
func DefaultAudioPrompt() string {
	return "Analyze and describe the content of this audio transcript. Include key topics, themes, tone, and any notable information or insights from the spoken content."
}
