// Package media handles discovery, validation, and wire encoding of the
// image, audio, and video files submitted for analysis. It decides which
// files an input path yields, whether a file fits the configured size
// limits, and what content type accompanies the encoded payload.
package media

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// Type identifies which analysis pipeline a file belongs to.
type Type string

const (
	TypeImage Type = "image"
	TypeAudio Type = "audio"
	TypeVideo Type = "video"
)

// ImageMIME is the content type used for every image upload. Oversized
// images are re-encoded as JPEG before upload, and providers accept JPEG
// payloads for the remaining formats as well.
const ImageMIME = "image/jpeg"

// ParseType converts a user-supplied media type string into a Type.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeImage, TypeAudio, TypeVideo:
		return t, nil
	default:
		return "", fmt.Errorf("unsupported media type: %s", s)
	}
}

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".bmp":  {},
	".tiff": {},
	".webp": {},
}

var audioExtensions = map[string]struct{}{
	".mp3":  {},
	".wav":  {},
	".m4a":  {},
	".flac": {},
	".ogg":  {},
	".aac":  {},
	".wma":  {},
}

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".avi":  {},
	".mov":  {},
	".mkv":  {},
	".wmv":  {},
	".flv":  {},
	".webm": {},
	".m4v":  {},
}

// mediaExtensions is the union of audio and video extensions. Audio
// analysis accepts video containers: the provider reads the audio track
// from the container directly, so no local extraction happens.
var mediaExtensions = func() map[string]struct{} {
	m := make(map[string]struct{}, len(audioExtensions)+len(videoExtensions))
	for ext := range audioExtensions {
		m[ext] = struct{}{}
	}
	for ext := range videoExtensions {
		m[ext] = struct{}{}
	}
	return m
}()

var audioMIMETypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".aac":  "audio/aac",
}

var videoMIMETypes = map[string]string{
	".mp4":  "video/mp4",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/mp4",
}

func extensionsFor(t Type) map[string]struct{} {
	switch t {
	case TypeImage:
		return imageExtensions
	case TypeAudio:
		return mediaExtensions
	case TypeVideo:
		return videoExtensions
	default:
		return nil
	}
}

// IsSupported reports whether path carries an accepted extension for t.
// The comparison is case insensitive.
func IsSupported(path string, t Type) bool {
	exts := extensionsFor(t)
	if exts == nil {
		return false
	}
	_, ok := exts[strings.ToLower(filepath.Ext(path))]
	return ok
}

// MIMEType returns the content type used when sending path to a provider.
// Images always go out as JPEG. Unknown audio extensions fall back to
// audio/mpeg and unknown video extensions to video/mp4.
func MIMEType(path string, t Type) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch t {
	case TypeImage:
		return ImageMIME
	case TypeAudio:
		if mime, ok := audioMIMETypes[ext]; ok {
			return mime
		}
		if mime, ok := videoMIMETypes[ext]; ok {
			return mime
		}
		return "audio/mpeg"
	case TypeVideo:
		if mime, ok := videoMIMETypes[ext]; ok {
			return mime
		}
		return "video/mp4"
	default:
		return ""
	}
}

// FileInfo describes a media file without decoding it.
type FileInfo struct {
	Path      string  `json:"path"`
	SizeBytes int64   `json:"file_size_bytes"`
	SizeMB    float64 `json:"file_size_mb"`
	Format    string  `json:"format"`
}

// Stat returns basic information about a media file. Format is derived
// from the file extension, not the contents.
func Stat(path string) (*FileInfo, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	sizeMB := float64(fi.Size()) / (1024 * 1024)
	return &FileInfo{
		Path:      path,
		SizeBytes: fi.Size(),
		SizeMB:    math.Round(sizeMB*100) / 100,
		Format:    strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
	}, nil
}
