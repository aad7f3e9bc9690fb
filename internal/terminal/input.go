// Package terminal reads user input and parses REPL commands.
package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"
)

// Reader reads lines, passwords and confirmations from the user
type Reader struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
	tty bool
}

// NewReader creates a reader over in, writing prompts to out. Password input
// is hidden when in is a terminal.
func NewReader(in io.Reader, out io.Writer) *Reader {
	r := &Reader{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r.fd = int(f.Fd())
		r.tty = true
	}
	return r
}

// ReadLine prints prompt and reads a line of input. The final line is
// returned even if it has no trailing newline; io.EOF is returned only when
// nothing was read.
func (r *Reader) ReadLine(prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprint(r.out, prompt)
	}

	input, err := r.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		return "", err
	}

	// Trim whitespace and newline
	return strings.TrimSpace(input), nil
}

// ReadPassword prints prompt and reads a line without echo
func (r *Reader) ReadPassword(prompt string) (string, error) {
	if !r.tty {
		return r.ReadLine(prompt)
	}

	fmt.Fprint(r.out, prompt)
	b, err := term.ReadPassword(r.fd)
	fmt.Fprintln(r.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

// Confirm asks a yes/no question. Anything but an explicit yes is a no.
func (r *Reader) Confirm(prompt string) bool {
	answer, err := r.ReadLine(prompt + " [y/N] ")
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// Command is a parsed slash command
type Command struct {
	Name string
	Args string
}

// ParseCommand splits a "/name args" line. It reports false for plain text.
func ParseCommand(line string) (Command, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") || len(line) == 1 {
		return Command{}, false
	}

	name, args, _ := strings.Cut(line[1:], " ")
	return Command{
		Name: strings.ToLower(name),
		Args: strings.TrimSpace(args),
	}, true
}

// SuggestFiles lists files whose name contains the last element of partial,
// up to limit entries. A directory in partial narrows the search to it and
// is kept as a prefix of each suggestion.
func SuggestFiles(workingDir string, partial string, limit int) []string {
	matches := []string{}
	if limit <= 0 {
		return matches
	}

	// Determine search directory and pattern
	searchDir := workingDir
	prefix := ""
	pattern := strings.ToLower(partial)

	if strings.Contains(partial, "/") {
		dir, file := filepath.Split(partial)
		prefix = dir
		pattern = strings.ToLower(file)
		searchDir = dir
		if !filepath.IsAbs(dir) {
			searchDir = filepath.Join(workingDir, dir)
		}
	}

	_ = filepath.Walk(searchDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}

		relPath, err := filepath.Rel(searchDir, path)
		if err != nil || relPath == "." {
			return nil
		}

		// Skip hidden files and directories
		if strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.IsDir() && strings.Contains(strings.ToLower(info.Name()), pattern) {
			matches = append(matches, filepath.Join(prefix, relPath))
			if len(matches) >= limit {
				return filepath.SkipAll
			}
		}

		// Limit depth to avoid scanning too deep
		if info.IsDir() && strings.Count(relPath, string(filepath.Separator)) > 3 {
			return filepath.SkipDir
		}
		return nil
	})

	return matches
}
