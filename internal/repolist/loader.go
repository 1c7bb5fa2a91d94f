// internal/repolist/loader.go
package repolist

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	custom_errors "repo-notion-sync/internal/errors"
)

// Identifier holds the owner and name of a repository.
type Identifier struct {
	Owner string
	Name  string
}

func (id Identifier) String() string {
	return id.Owner + "/" + id.Name
}

// Load reads one repository URL per line and reduces each to owner/name.
// Blank lines and lines starting with '#' are ignored.
func Load(path string) ([]Identifier, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &custom_errors.ErrInputFileNotFound{Path: path}
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ids []Identifier
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, err := ParseURL(line)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ids, nil
}

// ParseURL extracts owner/name from the path component of a repository URL.
func ParseURL(raw string) (Identifier, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Identifier{}, &custom_errors.ErrInvalidRepoFormat{Repo: raw}
	}
	p := strings.Trim(u.Path, "/")
	p = strings.TrimSuffix(p, ".git")

	parts := strings.Split(p, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Identifier{}, &custom_errors.ErrInvalidRepoFormat{Repo: raw}
	}
	return Identifier{Owner: parts[0], Name: parts[1]}, nil
}

// Write stores urls one per line, replacing any existing file.
func Write(path string, urls []string) error {
	var b strings.Builder
	for _, u := range urls {
		b.WriteString(u)
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
