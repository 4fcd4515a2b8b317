package engine

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadEndpoints reads one endpoint URL per line. Blank lines and lines starting
// with # are ignored, and repeated URLs are kept once.
func ReadEndpoints(r io.Reader) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read endpoints: %w", err)
	}
	return out, nil
}

// ReadEndpointsFile reads the endpoint list at path.
func ReadEndpointsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open endpoint list: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadEndpoints(f)
}
