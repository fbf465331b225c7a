package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func getStateDir() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		stateHome = filepath.Join(homeDir, ".local", "state")
	}
	return filepath.Join(stateHome, "nori")
}

func getHistoryFile() string {
	return filepath.Join(getStateDir(), "history")
}

// appendHistory records a search as "<RFC3339>\t<service>\t<tags>".
func appendHistory(cfg *Config, service, tags string) error {
	if !cfg.HistoryEnabled {
		return nil
	}

	stateDir := getStateDir()
	if stateDir == "" {
		return nil
	}

	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(getHistoryFile(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	tags = strings.Join(strings.Fields(tags), " ")
	entry := fmt.Sprintf("%s\t%s\t%s\n", time.Now().Format(time.RFC3339), service, tags)
	if _, err := f.WriteString(entry); err != nil {
		return err
	}

	// Trim history if it exceeds max
	return trimHistory(cfg.MaxHistory)
}

func trimHistory(maxHistory int) error {
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}

	lines, err := readHistoryLines()
	if err != nil {
		return err
	}

	if len(lines) <= maxHistory {
		return nil
	}

	// Keep only the last maxHistory entries
	lines = lines[len(lines)-maxHistory:]

	f, err := os.Create(getHistoryFile())
	if err != nil {
		return err
	}
	defer f.Close()

	for _, line := range lines {
		fmt.Fprintln(f, line)
	}

	return nil
}

func readHistoryLines() ([]string, error) {
	f, err := os.Open(getHistoryFile())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		// Empty queries are valid, so only the line ending is dropped.
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	return lines, scanner.Err()
}

type HistoryEntry struct {
	Timestamp time.Time
	Service   string
	Tags      string
}

func loadHistory() ([]HistoryEntry, error) {
	lines, err := readHistoryLines()
	if err != nil {
		return nil, err
	}

	var entries []HistoryEntry
	for _, line := range lines {
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}

		ts, err := time.Parse(time.RFC3339, parts[0])
		if err != nil {
			continue
		}

		entries = append(entries, HistoryEntry{
			Timestamp: ts,
			Service:   parts[1],
			Tags:      parts[2],
		})
	}

	return entries, nil
}

func printHistory(w io.Writer, limit int) error {
	entries, err := loadHistory()
	if err != nil {
		return fmt.Errorf("failed to load history: %v", err)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No search history.")
		return nil
	}

	start := 0
	if limit > 0 && limit < len(entries) {
		start = len(entries) - limit
	}

	for _, entry := range entries[start:] {
		tags := entry.Tags
		if tags == "" {
			tags = "(everything)"
		}
		fmt.Fprintf(w, "  %s  %-12s %s\n", entry.Timestamp.Format("2006-01-02 15:04"), entry.Service, tags)
	}

	return nil
}

func clearHistory(w io.Writer) error {
	if err := os.Remove(getHistoryFile()); err != nil && !os.IsNotExist(err) {
		return err
	}
	fmt.Fprintln(w, "History cleared.")
	return nil
}
