package media

import (
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// PreprocessThresholdKB is the size above which images are re-encoded as
// JPEG before upload. Large lossless files shrink severalfold, keeping
// request bodies under provider limits.
const PreprocessThresholdKB = 500

const jpegQuality = 95

// EncodeBase64 reads path and returns its contents as standard base64.
func EncodeBase64(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DataURL assembles a data URL from a MIME type and a base64 payload.
func DataURL(mimeType, base64Data string) string {
	return "data:" + mimeType + ";base64," + base64Data
}

// PreprocessImage re-encodes path as JPEG when the file is larger than
// PreprocessThresholdKB. It returns the path to upload and whether that
// path is a temporary file the caller must remove with CleanupTemp.
func PreprocessImage(path string) (string, bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", false, err
	}
	threshold := int64(PreprocessThresholdKB) * 1024
	if fi.Size() <= threshold {
		log.Debugf("image %s is %d bytes (<= %dKB), no preprocessing needed", filepath.Base(path), fi.Size(), PreprocessThresholdKB)
		return path, false, nil
	}

	log.Debugf("image %s is %d bytes (> %dKB), converting to JPEG", filepath.Base(path), fi.Size(), PreprocessThresholdKB)

	f, err := os.Open(path)
	if err != nil {
		return "", false, err
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return "", false, fmt.Errorf("decode image %s: %w", path, err)
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)
	tempPath := filepath.Join(filepath.Dir(path), base+"_preprocessed.jpg")

	out, err := os.Create(tempPath)
	if err != nil {
		return "", false, err
	}
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		out.Close()
		os.Remove(tempPath)
		return "", false, fmt.Errorf("encode image %s as JPEG: %w", path, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tempPath)
		return "", false, err
	}

	log.Debugf("converted %s to JPEG format: %s", filepath.Base(path), filepath.Base(tempPath))
	return tempPath, true, nil
}

// CleanupTemp removes a temporary file produced by PreprocessImage.
func CleanupTemp(path string) {
	err := os.Remove(path)
	switch {
	case err == nil:
		log.Debugf("cleaned up temporary file: %s", filepath.Base(path))
	case !os.IsNotExist(err):
		log.Warnf("failed to clean up temporary file %s: %v", path, err)
	}
}
