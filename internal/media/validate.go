package media

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
)

// sendableAudioExtensions lists the audio formats the provider accepts as
// inline payloads. Discovery is wider than this set: .wma files are found
// in directories but rejected at validation time.
var sendableAudioExtensions = map[string]struct{}{
	".mp3":  {},
	".wav":  {},
	".m4a":  {},
	".flac": {},
	".ogg":  {},
	".aac":  {},
}

// ValidateImage checks that path holds an image the providers will accept.
// The file must exist, fit under maxSizeMB, carry a supported extension,
// and have a decodable image header.
func ValidateImage(path string, maxSizeMB int) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("image file does not exist: %s", path)
	}
	sizeMB := float64(fi.Size()) / (1024 * 1024)
	if sizeMB > float64(maxSizeMB) {
		return fmt.Errorf("image %s exceeds max size (%.1fMB > %dMB)", path, sizeMB, maxSizeMB)
	}
	if !IsSupported(path, TypeImage) {
		return fmt.Errorf("unsupported image format: %s", strings.ToLower(filepath.Ext(path)))
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image %s: %w", path, err)
	}
	defer f.Close()
	if _, _, err := image.DecodeConfig(f); err != nil {
		return fmt.Errorf("image validation failed for %s: %v", path, err)
	}
	return nil
}

// ValidateAudio checks that path is sendable for audio analysis. Video
// containers pass because the provider reads the audio track without any
// local extraction step.
func ValidateAudio(path string, maxSizeMB int) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("audio file does not exist: %s", path)
	}
	sizeMB := float64(fi.Size()) / (1024 * 1024)
	if sizeMB > float64(maxSizeMB) {
		return fmt.Errorf("audio %s exceeds max size (%.1fMB > %dMB)", path, sizeMB, maxSizeMB)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := sendableAudioExtensions[ext]; ok {
		return nil
	}
	if _, ok := videoExtensions[ext]; ok {
		return nil
	}
	return fmt.Errorf("unsupported audio format: %s", ext)
}

// ValidateVideo checks that path is sendable for video analysis.
func ValidateVideo(path string, maxSizeMB int) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("video file does not exist: %s", path)
	}
	sizeMB := float64(fi.Size()) / (1024 * 1024)
	if sizeMB > float64(maxSizeMB) {
		return fmt.Errorf("video %s exceeds max size (%.1fMB > %dMB)", path, sizeMB, maxSizeMB)
	}
	if !IsSupported(path, TypeVideo) {
		return fmt.Errorf("unsupported video format: %s", strings.ToLower(filepath.Ext(path)))
	}
	return nil
}
