package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// rotatedPrefix is shared by every rotated segment name.
const rotatedPrefix = "bookshelf-audit-"

// RotationManager handles size-based log rotation.
type RotationManager struct {
	config Config
}

// NewRotationManager creates a new RotationManager with the given configuration.
func NewRotationManager(config Config) *RotationManager {
	return &RotationManager{config: config}
}

// NeedsRotation reports whether the log at logPath has reached the rotation size.
func (rm *RotationManager) NeedsRotation(logPath string) (bool, error) {
	if rm.config.RotationSize <= 0 {
		return false, nil
	}

	info, err := os.Stat(logPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat log file: %w", err)
	}

	return info.Size() >= rm.config.RotationSize, nil
}

// GenerateRotatedFilename creates a filename for a rotated log segment.
// Format: bookshelf-audit-YYYYMMDD-HHMMSS-NNNNNNNNN.jsonl
func (rm *RotationManager) GenerateRotatedFilename() string {
	now := time.Now().UTC()
	return fmt.Sprintf("%s%s-%09d.jsonl", rotatedPrefix, now.Format("20060102-150405"), now.Nanosecond())
}

// RotateWithFilename renames the active log to the given segment name.
func (rm *RotationManager) RotateWithFilename(logPath, rotatedFilename string) error {
	target := filepath.Join(filepath.Dir(logPath), rotatedFilename)
	if err := os.Rename(logPath, target); err != nil {
		return fmt.Errorf("failed to rename log file: %w", err)
	}
	return nil
}

// GetAllLogFiles returns rotated segments oldest first, followed by the
// active log if present.
func GetAllLogFiles(logDir string) ([]string, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read log directory: %w", err)
	}

	var segments []string
	hasActive := false
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch {
		case name == LogFileName:
			hasActive = true
		case strings.HasPrefix(name, rotatedPrefix) && strings.HasSuffix(name, ".jsonl"):
			segments = append(segments, name)
		}
	}

	// The timestamped names sort chronologically.
	sort.Strings(segments)

	files := make([]string, 0, len(segments)+1)
	for _, name := range segments {
		files = append(files, filepath.Join(logDir, name))
	}
	if hasActive {
		files = append(files, filepath.Join(logDir, LogFileName))
	}
	return files, nil
}
