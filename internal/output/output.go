// Package output renders analysis results as JSON, Markdown, or plain
// text and writes them to stdout or a file.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modalyze/modalyze/internal/media"
)

// Output formats accepted on the command line.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// now is a seam for the verbose "Generated on" stamp.
var now = time.Now

// Result is the outcome of analyzing one media file. Zero-value fields are
// omitted from rendered output, so an image result simply leaves Mode and
// Transcript empty.
type Result struct {
	Path       string
	Model      string
	Mode       string
	Prompt     string
	WordCount  int
	Analysis   string
	Transcript string
	Info       *media.FileInfo
	Success    bool
	Err        string
}

// Format renders results for one media type. verbose adds run metadata and
// per-file details to every format.
func Format(t media.Type, results []Result, format string, verbose bool) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(t, results, verbose)
	case FormatMarkdown:
		return formatMarkdown(t, results, verbose), nil
	case FormatText:
		return formatText(t, results, verbose), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

// ExtensionFor returns the file extension conventionally used for a format.
func ExtensionFor(format string) string {
	switch format {
	case FormatJSON:
		return ".json"
	case FormatMarkdown:
		return ".md"
	default:
		return ".txt"
	}
}

// SaveToFile writes content to path, creating parent directories as needed.
func SaveToFile(content, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	return nil
}

// labelsFor maps a media type to the headings used in rendered output.
func labelsFor(t media.Type) (header, total, item string) {
	switch t {
	case media.TypeAudio:
		return "Audio Analysis Results", "Total Audio Files", "Audio"
	case media.TypeVideo:
		return "Video Analysis Results", "Total Video Files", "Video"
	default:
		return "Image Analysis Results", "Total Images", "Image"
	}
}

// displayMode substitutes the per-type default when a result carries no
// mode: audio never defaults, video is always a description.
func displayMode(t media.Type, mode string) string {
	if mode != "" {
		return mode
	}
	if t == media.TypeVideo {
		return "description"
	}
	return "unknown"
}

func errOrUnknown(err string) string {
	if err == "" {
		return "Unknown error"
	}
	return err
}

func formatMarkdown(t media.Type, results []Result, verbose bool) string {
	header, total, item := labelsFor(t)
	if len(results) == 0 {
		return "# " + header + "\n\nNo results found."
	}

	md := []string{"# " + header + "\n"}
	if verbose {
		md = append(md, fmt.Sprintf("**Generated on:** %s\n", now().Format("2006-01-02 15:04:05")))
		md = append(md, fmt.Sprintf("**%s:** %d\n", total, len(results)))
	}

	for i, r := range results {
		md = append(md, fmt.Sprintf("## %s %d: %s\n", item, i+1, filepath.Base(r.Path)))
		md = append(md, fmt.Sprintf("**Path:** `%s`\n", r.Path))
		if t != media.TypeImage {
			md = append(md, fmt.Sprintf("**Mode:** %s\n", displayMode(t, r.Mode)))
		}

		if verbose {
			if r.Info != nil {
				md = append(md, fmt.Sprintf("**Format:** %s\n", r.Info.Format))
				md = append(md, fmt.Sprintf("**File Size:** %.1f MB\n", r.Info.SizeMB))
			}
			if t == media.TypeImage {
				model := r.Model
				if model == "" {
					model = "unknown"
				}
				md = append(md, fmt.Sprintf("**Model:** %s\n", model))
			} else if r.Model != "" {
				md = append(md, fmt.Sprintf("**Model:** %s\n", r.Model))
			}
			if r.Prompt != "" {
				md = append(md, fmt.Sprintf("**Prompt:** %s\n", r.Prompt))
			}
			if r.WordCount != 0 {
				md = append(md, fmt.Sprintf("**Word Count:** %d\n", r.WordCount))
			}
		}

		switch {
		case !r.Success:
			md = append(md, fmt.Sprintf("**Error:** %s\n", errOrUnknown(r.Err)))
		case t == media.TypeAudio && r.Mode == "transcript":
			md = append(md, "**Transcript:**\n")
			md = append(md, r.Transcript+"\n")
		case t == media.TypeAudio:
			if verbose {
				md = append(md, "**Transcript:**\n")
				md = append(md, r.Transcript+"\n\n")
			}
			md = append(md, "**Analysis:**\n")
			md = append(md, r.Analysis+"\n")
		default:
			md = append(md, "**Analysis:**\n")
			md = append(md, r.Analysis+"\n")
		}

		md = append(md, "---\n")
	}

	return strings.Join(md, "\n")
}

func formatText(t media.Type, results []Result, verbose bool) string {
	header, total, item := labelsFor(t)
	if len(results) == 0 {
		return header + "\n\nNo results found."
	}

	lines := []string{header, strings.Repeat("=", 50)}
	if verbose {
		lines = append(lines, fmt.Sprintf("Generated on: %s", now().Format("2006-01-02 15:04:05")))
		lines = append(lines, fmt.Sprintf("%s: %d", total, len(results)))
		lines = append(lines, "")
	}

	for i, r := range results {
		lines = append(lines, fmt.Sprintf("%s %d: %s", item, i+1, filepath.Base(r.Path)))
		lines = append(lines, fmt.Sprintf("Path: %s", r.Path))
		if t != media.TypeImage {
			lines = append(lines, fmt.Sprintf("Mode: %s", displayMode(t, r.Mode)))
		}

		if verbose {
			if r.Info != nil {
				lines = append(lines, fmt.Sprintf("Format: %s", r.Info.Format))
				lines = append(lines, fmt.Sprintf("File Size: %.1f MB", r.Info.SizeMB))
			}
			if t == media.TypeImage {
				model := r.Model
				if model == "" {
					model = "unknown"
				}
				lines = append(lines, fmt.Sprintf("Model: %s", model))
			} else if r.Model != "" {
				lines = append(lines, fmt.Sprintf("Model: %s", r.Model))
			}
			if r.Prompt != "" {
				lines = append(lines, fmt.Sprintf("Prompt: %s", r.Prompt))
			}
			if r.WordCount != 0 {
				lines = append(lines, fmt.Sprintf("Word Count: %d", r.WordCount))
			}
		}

		lines = append(lines, "")

		switch {
		case !r.Success:
			lines = append(lines, fmt.Sprintf("Error: %s", errOrUnknown(r.Err)))
		case t == media.TypeAudio && r.Mode == "transcript":
			lines = append(lines, "Transcript:")
			lines = append(lines, r.Transcript)
		case t == media.TypeAudio:
			if verbose {
				lines = append(lines, "Transcript:")
				lines = append(lines, r.Transcript)
				lines = append(lines, "")
			}
			lines = append(lines, "Analysis:")
			lines = append(lines, r.Analysis)
		default:
			lines = append(lines, "Analysis:")
			lines = append(lines, r.Analysis)
		}

		lines = append(lines, "")
		lines = append(lines, strings.Repeat("-", 50))
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
