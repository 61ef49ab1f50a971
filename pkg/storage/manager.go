package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// PartialDirName holds in-flight writes under the root; it is never a species folder
const PartialDirName = ".partial"

// Manager owns the on-disk layout <root>/<folder_key>/photo_<index>.<ext>
type Manager struct {
	root       string
	partialDir string
}

// NewManager creates the root and its partial-write directory
func NewManager(root string) (*Manager, error) {
	partialDir := filepath.Join(root, PartialDirName)
	if err := os.MkdirAll(partialDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		root:       root,
		partialDir: partialDir,
	}, nil
}

// Root returns the output root directory
func (m *Manager) Root() string {
	return m.root
}

// SpeciesDir returns the folder for a species folder key
func (m *Manager) SpeciesDir(folderKey string) string {
	return filepath.Join(m.root, folderKey)
}

// EnsureSpeciesDir creates the species folder if needed and returns its path
func (m *Manager) EnsureSpeciesDir(folderKey string) (string, error) {
	dir := m.SpeciesDir(folderKey)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create species folder %s: %w", folderKey, err)
	}
	return dir, nil
}

// CountFiles counts regular files in a species folder; a missing folder counts as zero
func (m *Manager) CountFiles(folderKey string) (int, error) {
	return CountRegularFiles(m.SpeciesDir(folderKey))
}

// CountRegularFiles counts the regular files directly inside dir.
// Subdirectories, symlinks and other special files are not counted.
func CountRegularFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read directory: %w", err)
	}

	count := 0
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			count++
		}
	}
	return count, nil
}

// PhotoFileName names a saved photo by its batch index and decoded format
func PhotoFileName(index int, format string) string {
	return fmt.Sprintf("photo_%d.%s", index, format)
}

// PhotoIndexes reports which batch indexes already have a photo_<index>.*
// file in a species folder; a missing folder has none
func (m *Manager) PhotoIndexes(folderKey string) (map[int]bool, error) {
	entries, err := os.ReadDir(m.SpeciesDir(folderKey))
	if err != nil {
		if os.IsNotExist(err) {
			return map[int]bool{}, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	indexes := make(map[int]bool, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if index, ok := photoIndex(entry.Name()); ok {
			indexes[index] = true
		}
	}
	return indexes, nil
}

func photoIndex(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "photo_")
	if !ok {
		return 0, false
	}
	digits, _, _ := strings.Cut(rest, ".")
	index, err := strconv.Atoi(digits)
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}

// SavePhoto writes r to <root>/<folderKey>/<name> atomically. Data lands in a
// uniquely named file under the partial directory and is renamed into place,
// so an interrupted write never shows up in a species folder.
func (m *Manager) SavePhoto(r io.Reader, folderKey, name string) (string, error) {
	dir, err := m.EnsureSpeciesDir(folderKey)
	if err != nil {
		return "", err
	}
	filename := filepath.Join(dir, name)

	tempFile := filepath.Join(m.partialDir, uuid.NewString())
	out, err := os.Create(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to save photo data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return filename, nil
}

// CleanPartials removes leftovers of interrupted writes from a previous run
func (m *Manager) CleanPartials() (int, error) {
	entries, err := os.ReadDir(m.partialDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read partial directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(m.partialDir, entry.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove partial file: %w", err)
		}
		removed++
	}
	return removed, nil
}
