package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// argFilePrefix marks an argument naming a file of further arguments.
const argFilePrefix = "@"

// expandArgFiles replaces every "@path" argument with the lines of path, one
// argument per line. Blank lines are ignored. Arguments read from a file are
// not expanded again.
func expandArgFiles(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, argFilePrefix) || arg == argFilePrefix {
			out = append(out, arg)
			continue
		}

		lines, err := readArgFile(strings.TrimPrefix(arg, argFilePrefix))
		if err != nil {
			return nil, err
		}
		out = append(out, lines...)
	}
	return out, nil
}

func readArgFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open argument file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read argument file %s: %w", path, err)
	}
	return lines, nil
}
