package files

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery provides spreadsheet discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindExcelFiles finds all Excel files in the specified directory
func (d *Discovery) FindExcelFiles(dir string) ([]FileInfo, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !isExcelFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	// Sort by modification time (oldest first)
	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.Before(files[j].ModTime)
	})

	return files, nil
}

// BatchPair is one folder holding exactly one File A and one File B.
type BatchPair struct {
	FolderName string `json:"folder_name"`
	PathA      string `json:"path_a"`
	PathB      string `json:"path_b"`
	Status     string `json:"status"` // "Found", "Analyzed", "Error"
}

// BatchScanResult summarizes a recursive pair scan.
type BatchScanResult struct {
	TotalFoldersScanned int         `json:"total_folders_scanned"`
	Pairs               []BatchPair `json:"pairs"`
	IncompleteFolders   []string    `json:"incomplete_folders"`
}

// ScanPairs walks root up to maxDepth levels and pairs the Excel files it
// finds by parent folder. A folder only yields a pair when the filename
// heuristics identify exactly one File A and one File B; folders with partial
// or ambiguous matches are reported as incomplete instead of being guessed at.
func (d *Discovery) ScanPairs(root string, maxDepth int) (*BatchScanResult, error) {
	fullRoot := root
	if !filepath.IsAbs(root) {
		fullRoot = filepath.Join(d.basePath, root)
	}

	rootDepth := strings.Count(filepath.Clean(fullRoot), string(os.PathSeparator))
	folderFiles := make(map[string][]string)

	err := filepath.WalkDir(fullRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal: a batch scan over an
			// evidence share routinely hits permission holes.
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			depth := strings.Count(filepath.Clean(path), string(os.PathSeparator)) - rootDepth
			if depth > maxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if isExcelFile(entry.Name()) {
			parent := filepath.Dir(path)
			folderFiles[parent] = append(folderFiles[parent], path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", fullRoot, err)
	}

	result := &BatchScanResult{TotalFoldersScanned: len(folderFiles)}

	for folder, paths := range folderFiles {
		var fileA, fileB string
		var countA, countB int

		for _, path := range paths {
			name := strings.ToLower(filepath.Base(path))
			if looksLikeFileA(name) {
				fileA = path
				countA++
			}
			if looksLikeFileB(name) {
				fileB = path
				countB++
			}
		}

		// Strict rule: exactly one A and one B, otherwise the folder needs a
		// human decision.
		if countA == 1 && countB == 1 {
			result.Pairs = append(result.Pairs, BatchPair{
				FolderName: filepath.Base(folder),
				PathA:      fileA,
				PathB:      fileB,
				Status:     "Found",
			})
		} else if countA > 0 || countB > 0 {
			result.IncompleteFolders = append(result.IncompleteFolders, folder)
		}
	}

	sort.Slice(result.Pairs, func(i, j int) bool {
		return result.Pairs[i].FolderName < result.Pairs[j].FolderName
	})
	sort.Strings(result.IncompleteFolders)

	return result, nil
}

func isExcelFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls")
}

// looksLikeFileA identifies a transaction ledger by filename.
func looksLikeFileA(lowerName string) bool {
	return strings.Contains(lowerName, "_a") ||
		strings.HasPrefix(lowerName, "a") ||
		strings.Contains(lowerName, "transaction") ||
		strings.Contains(lowerName, "account") ||
		strings.Contains(lowerName, "帳號")
}

// looksLikeFileB identifies an IP log by filename.
func looksLikeFileB(lowerName string) bool {
	return strings.Contains(lowerName, "_b") ||
		strings.HasPrefix(lowerName, "b") ||
		strings.Contains(lowerName, "ip") ||
		strings.Contains(lowerName, "log") ||
		strings.Contains(lowerName, "登入")
}
