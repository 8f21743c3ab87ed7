package gitstore

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

// reflogDir is where git keeps reference logs, relative to the git directory.
const reflogDir = "logs"

// appendReflog adds an entry to the reference's log in the format git itself
// writes:
//
//	<old> <new> <name> <<email>> <unix-time> <+hhmm>\t<message>
//
// In-memory repositories have no reflog and are skipped.
func (s *Store) appendReflog(name plumbing.ReferenceName, old, updated plumbing.Hash, message string) error {
	if s.dotGit == nil {
		return nil
	}

	file := path.Join(reflogDir, name.String())
	if err := s.dotGit.MkdirAll(path.Dir(file), 0o755); err != nil {
		return fmt.Errorf("creating reflog directory: %w", err)
	}

	f, err := s.dotGit.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening reflog: %w", err)
	}

	if _, err := f.Write([]byte(s.reflogLine(old, updated, message))); err != nil {
		_ = f.Close()
		return fmt.Errorf("appending reflog: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing reflog: %w", err)
	}
	return nil
}

func (s *Store) reflogLine(old, updated plumbing.Hash, message string) string {
	name, email := s.identity()
	now := s.now()

	// A reflog entry is a single line.
	message = strings.ReplaceAll(strings.TrimSpace(message), "\n", " ")

	return fmt.Sprintf("%s %s %s <%s> %d %s\t%s\n",
		old, updated, name, email, now.Unix(), now.Format("-0700"), message)
}

// ReadReflog returns the messages logged for a reference, oldest first.
func (s *Store) ReadReflog(name plumbing.ReferenceName) ([]string, error) {
	if s.dotGit == nil {
		return nil, nil
	}

	f, err := s.dotGit.Open(path.Join(reflogDir, name.String()))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening reflog: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading reflog: %w", err)
	}

	var messages []string
	for _, line := range strings.Split(string(data), "\n") {
		if _, msg, ok := strings.Cut(line, "\t"); ok {
			messages = append(messages, msg)
		}
	}
	return messages, nil
}
