// =============================================================================
// ykj-wgs - File Manager Utility
// =============================================================================
//
// This module provides the file utilities of a conversion run:
//   - Output file naming from a placeholder template
//   - Sibling paths for the KML rendering and the error log
//   - Atomic writes (temp file + rename) so a failed run leaves no output
//
// =============================================================================

package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName builds the output path for inputPath.
//
// PARAMETERS:
//   - format: The template for the output path.
//             Placeholders:
//               {input}     - The input path as given
//               {base}      - Input file name without directory and extension
//               {dir}       - Directory of the input file
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//   - inputPath: The input file.
//   - now: The time used for {timestamp} and {date}.
//
// RETURNS:
//   - The generated path; ".gpx" is appended when missing.
//
// EXAMPLE:
//   format: "{dir}/{base}_{date}.gpx"
//   inputPath: "data/points.csv"
//   output: "data/points_20240115.gpx"
func GenerateOutputFileName(format, inputPath string, now time.Time) string {
	base := filepath.Base(inputPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	replacer := strings.NewReplacer(
		"{input}", inputPath,
		"{base}", base,
		"{dir}", filepath.Dir(inputPath),
		"{uuid}", uuid.New().String(),
		"{timestamp}", now.Format("20060102_150405"),
		"{date}", now.Format("20060102"),
	)
	result := filepath.Clean(replacer.Replace(format))

	if !strings.HasSuffix(strings.ToLower(result), ".gpx") {
		result += ".gpx"
	}
	return result
}

// SiblingPath replaces the extension of path with ext.
func SiblingPath(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// ErrorLogPath returns the error log written next to inputPath.
func ErrorLogPath(inputPath string) string {
	return inputPath + ".errors.txt"
}

// =============================================================================
// FILE WRITING
// =============================================================================

// WriteFileAtomic writes data to a temporary file in the target directory and
// renames it into place.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("failed to set mode on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// EnsureDir creates the parent directory of path.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
