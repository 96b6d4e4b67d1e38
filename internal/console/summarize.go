package console

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const defaultSummarizeLimit = 5

// Summarize returns the last limit transcript lines containing term, across
// all session logs in dir in file-name (i.e. session) order. An empty term
// matches every line.
func Summarize(dir, term string, limit int) string {
	if limit <= 0 {
		limit = defaultSummarizeLimit
	}
	if _, err := os.Stat(dir); err != nil {
		return "no logs"
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.log"))
	if err != nil || len(files) == 0 {
		return "no logs"
	}
	sort.Strings(files)

	// Sliding window over matches; only the tail survives.
	var matches []string
	for _, file := range files {
		f, err := os.Open(file)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if term != "" && !strings.Contains(line, term) {
				continue
			}
			matches = append(matches, line)
			if len(matches) > limit {
				matches = matches[1:]
			}
		}
		f.Close()
	}

	if len(matches) == 0 {
		return "no matches"
	}
	return strings.Join(matches, "\n")
}
