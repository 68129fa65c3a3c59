package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/c360studio/personacheck/validation"
)

// Artifact file names inside a run directory.
const (
	SummaryFile  = "run_summary.json"
	EntriesFile  = "entries.csv"
	FeedbackFile = "feedback.md"
)

// Writer writes run artifacts under a base directory, one run_<id>
// subdirectory per run.
type Writer struct {
	baseDir string
	logger  *slog.Logger
}

// NewWriter creates a writer rooted at baseDir.
func NewWriter(baseDir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{baseDir: baseDir, logger: logger}
}

// Write stores the summary, the entries and, for a report with failures or
// warnings, the markdown feedback. It returns the run directory.
func (w *Writer) Write(summary *Summary, rep *validation.Report) (string, error) {
	dir := filepath.Join(w.baseDir, "run_"+summary.RunID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create run directory: %w", err)
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, SummaryFile), append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}

	if rep != nil {
		if err := writeEntries(filepath.Join(dir, EntriesFile), rep); err != nil {
			return "", err
		}
		if feedback := rep.FormatFeedback(); feedback != "" {
			if err := os.WriteFile(filepath.Join(dir, FeedbackFile), []byte(feedback), 0644); err != nil {
				return "", fmt.Errorf("write feedback: %w", err)
			}
		}
	}

	w.logger.Debug("Wrote run artifacts", "dir", dir, "run_id", summary.RunID)
	return dir, nil
}

func writeEntries(path string, rep *validation.Report) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create entries file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close entries file: %w", cerr)
		}
	}()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"rule", "path", "target", "passed", "warning", "message"}); err != nil {
		return fmt.Errorf("write entries: %w", err)
	}
	for _, e := range rep.Entries {
		record := []string{
			e.Rule,
			e.Path,
			e.Target,
			strconv.FormatBool(e.Passed),
			strconv.FormatBool(e.Warning),
			e.Message,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write entries: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write entries: %w", err)
	}
	return nil
}
