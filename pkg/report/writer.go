package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// WriteJSON writes the stats as indented JSON. Map keys are sorted by encoding/json.
func WriteJSON(w io.Writer, s *Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteMarkdown writes the operator summary.
func WriteMarkdown(w io.Writer, s *Stats) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s run %s\n\n", s.Command, s.RunID)
	fmt.Fprintf(&b, "- mode: %s\n", s.Mode)
	fmt.Fprintf(&b, "- started: %s\n", s.StartedAt.Format(time.RFC3339))
	if !s.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "- finished: %s (%s)\n", s.FinishedAt.Format(time.RFC3339), s.Duration().Round(time.Millisecond))
	}
	if s.Stopped != "" {
		fmt.Fprintf(&b, "- stopped: %s\n", s.Stopped)
	}
	if s.Fatal != "" {
		fmt.Fprintf(&b, "- FATAL: %s\n", s.Fatal)
	}

	b.WriteString("\n## Totals\n\n| metric | count |\n|---|---|\n")
	for _, row := range []struct {
		name  string
		count int
	}{
		{"processed", s.Processed},
		{"created", s.Created},
		{"merged", s.Merged},
		{"provenance only", s.ProvenanceOnly},
		{"linked", s.Linked},
		{"skipped", s.Skipped},
		{"errored", s.Errored},
		{"chunks", s.Chunks},
	} {
		fmt.Fprintf(&b, "| %s | %d |\n", row.name, row.count)
	}

	writeHistogram(&b, "Skip reasons", s.SkipReasons)
	writeHistogram(&b, "Unmapped categories", s.UnmappedCategories)
	writeHistogram(&b, "Match reasons", s.MatchReasons)
	writeHistogram(&b, "Match confidence", s.MatchConfidence)
	writeHistogram(&b, "Category methods", s.CategoryMethods)
	writeHistogram(&b, "Fields filled", s.FieldsFilled)
	writeHistogram(&b, "Error stages", s.ErrorStages)
	writeHistogram(&b, "Sources", s.Sources)

	if len(s.NearMisses) > 0 {
		b.WriteString("\n## Near misses\n\n| record | root | names | edit | name score |\n|---|---|---|---|---|\n")
		for _, m := range s.NearMisses {
			fmt.Fprintf(&b, "| %s | %s | %s / %s | %.2f | %.2f |\n",
				m.BusinessID, m.RootID, escapeCell(m.Name), escapeCell(m.RootName), m.EditScore, m.NameScore)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// writeHistogram lists entries by descending count, then key.
func writeHistogram(b *strings.Builder, title string, h Histogram) {
	if len(h) == 0 {
		return
	}
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if h[keys[i]] != h[keys[j]] {
			return h[keys[i]] > h[keys[j]]
		}
		return keys[i] < keys[j]
	})

	fmt.Fprintf(b, "\n## %s\n\n| key | count |\n|---|---|\n", title)
	for _, k := range keys {
		fmt.Fprintf(b, "| %s | %d |\n", escapeCell(k), h[k])
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// Save writes <dir>/<command>-<run id>.json and .md and returns both paths.
func Save(dir string, s *Stats) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report dir: %w", err)
	}

	base := filepath.Join(dir, fmt.Sprintf("%s-%s", s.Command, s.RunID))
	paths := []string{base + ".json", base + ".md"}
	writers := []func(io.Writer, *Stats) error{WriteJSON, WriteMarkdown}

	for i, path := range paths {
		if err := writeFile(path, s, writers[i]); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

func writeFile(path string, s *Stats, write func(io.Writer, *Stats) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", path, err)
	}
	if err := write(f, s); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return f.Close()
}
