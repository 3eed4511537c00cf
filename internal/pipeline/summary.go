package pipeline

import (
	"time"

	"github.com/starford/stackscope/internal/gaps"
)

// FileError records one file that contributed an empty result.
type FileError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Summary reports the outcome of one run.
type Summary struct {
	StartedAt           time.Time      `json:"started_at"`
	Duration            time.Duration  `json:"duration_ns"`
	FilesScanned        int            `json:"files_scanned"`
	UIFiles             int            `json:"ui_files"`
	BackendFiles        int            `json:"backend_files"`
	CacheHits           int            `json:"cache_hits"`
	ExtractionErrors    int            `json:"extraction_errors"`
	FileErrors          []FileError    `json:"file_errors"`
	Entities            int            `json:"entities"`
	Relationships       int            `json:"relationships"`
	APIMappings         int            `json:"api_mappings"`
	ValidationLinks     int            `json:"validation_links"`
	PersistenceErrors   int            `json:"persistence_errors"`
	ReferentialWarnings int            `json:"referential_warnings"`
	Contracts           int            `json:"contracts"`
	ContractsError      string         `json:"contracts_error,omitempty"`
	Pruned              int            `json:"pruned"`
	Gaps                map[string]int `json:"gaps"`
}

func newSummary(start time.Time) *Summary {
	return &Summary{
		StartedAt:  start,
		FileErrors: []FileError{},
		Gaps:       map[string]int{},
	}
}

func (s *Summary) fileFailed(path string, err error) {
	s.ExtractionErrors++
	s.FileErrors = append(s.FileErrors, FileError{Path: path, Error: err.Error()})
}

func (s *Summary) finish(end time.Time, report gaps.Report) {
	s.Duration = end.Sub(s.StartedAt)
	s.Gaps = report.Counts()
}
