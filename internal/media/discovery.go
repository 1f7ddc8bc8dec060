package media

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
)

// FindFiles returns the media files of type t reachable from path, sorted
// by name. A file path yields itself when its extension matches and
// nothing otherwise. A directory is scanned one level deep, or fully when
// recursive is set.
func FindFiles(path string, t Type, recursive bool) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("path does not exist: %s", path)
		}
		return nil, err
	}

	if !info.IsDir() {
		if IsSupported(path, t) {
			return []string{path}, nil
		}
		log.Warnf("file %s is not a supported %s format", path, t)
		return nil, nil
	}

	var files []string
	if recursive {
		walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && IsSupported(p, t) {
				files = append(files, p)
			}
			return nil
		})
		if walkErr != nil {
			return nil, walkErr
		}
	} else {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			p := filepath.Join(path, entry.Name())
			if IsSupported(p, t) {
				files = append(files, p)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// ValidateFileList checks an explicit list of file paths against the
// accepted extensions for t, failing on the first problem. Paths are
// normalized to Unicode NFC so composed and decomposed spellings of the
// same name resolve to the same file. The validated list comes back
// sorted.
func ValidateFileList(files []string, t Type) ([]string, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files provided")
	}
	if extensionsFor(t) == nil {
		return nil, fmt.Errorf("unsupported media type: %s", t)
	}

	validated := make([]string, 0, len(files))
	for _, f := range files {
		f = norm.NFC.String(f)
		info, err := os.Stat(f)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("file not found: %s", f)
			}
			return nil, err
		}
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("path is not a file: %s", f)
		}
		if !IsSupported(f, t) {
			return nil, fmt.Errorf("unsupported format for %s: %s", t, f)
		}
		validated = append(validated, f)
	}

	sort.Strings(validated)
	return validated, nil
}
