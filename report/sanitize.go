package report

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrInvalidSaveFolder is returned for save folders that are unsafe to write to.
var ErrInvalidSaveFolder = errors.New("invalid save folder")

const maxFilenameLength = 255

var (
	dangerousPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\.\.`),                   // directory traversal
		regexp.MustCompile(`^~`),                     // home directory reference
		regexp.MustCompile(`(?i)^(con|prn|aux|nul)$`), // windows reserved names
		regexp.MustCompile(`[<>"|?*]`),
	}

	filenameReplacer = strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		"~", "_",
		"$", "_",
		"`", "_",
		"|", "_",
		"<", "_",
		">", "_",
		":", "_",
		"\"", "_",
		"?", "_",
		"*", "_",
		"\x00", "_",
	)

	systemDirs = []string{"/etc", "/bin", "/sbin", "/usr/bin", "/usr/sbin", "/sys", "/proc", "/dev"}
)

// SanitizeFilename makes name safe to use as a single path element.
func SanitizeFilename(name string) string {
	safe := filenameReplacer.Replace(name)

	if len(safe) > maxFilenameLength {
		ext := filepath.Ext(safe)
		if len(ext) < maxFilenameLength {
			safe = safe[:maxFilenameLength-len(ext)] + ext
		} else {
			safe = safe[:maxFilenameLength]
		}
	}

	if safe == "" || safe == "." {
		safe = "unnamed"
	}
	return safe
}

// ValidateSaveFolder rejects traversal patterns and system directories.
func ValidateSaveFolder(folder string) error {
	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(folder) {
			return fmt.Errorf("%w %q: contains dangerous pattern", ErrInvalidSaveFolder, folder)
		}
	}

	clean := filepath.Clean(folder)
	for _, dir := range systemDirs {
		if clean == dir || strings.HasPrefix(clean, dir+"/") {
			return fmt.Errorf("%w %q: cannot write to system directory %s", ErrInvalidSaveFolder, folder, dir)
		}
	}
	return nil
}
