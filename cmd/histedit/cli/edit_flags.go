package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/entireio/histedit/cmd/histedit/cli/history"

	"github.com/spf13/cobra"
)

// signatureFlags are the raw --author-* or --committer-* values.
type signatureFlags struct {
	name   string
	email  string
	date   string
	offset string
}

// editFlags are the raw values of every edit flag.
type editFlags struct {
	author      signatureFlags
	committer   signatureFlags
	message     string
	messageFile string

	dryRun       bool
	yes          bool
	allowSecrets bool
	asJSON       bool
}

func (f *editFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	for _, role := range []struct {
		prefix string
		sig    *signatureFlags
	}{
		{"author", &f.author},
		{"committer", &f.committer},
	} {
		flags.StringVar(&role.sig.name, role.prefix+"-name", "", "New "+role.prefix+" name")
		flags.StringVar(&role.sig.email, role.prefix+"-email", "", "New "+role.prefix+" email")
		flags.StringVar(&role.sig.date, role.prefix+"-date", "", "New "+role.prefix+" date (RFC 3339 or unix seconds)")
		flags.StringVar(&role.sig.offset, role.prefix+"-offset", "", "New "+role.prefix+" time zone offset (±HHMM)")
	}
	flags.StringVarP(&f.message, "message", "m", "", "New commit message")
	flags.StringVarP(&f.messageFile, "message-file", "F", "", "Read the new commit message from `file` (- for stdin)")
	cmd.MarkFlagsMutuallyExclusive("message", "message-file")

	flags.BoolVar(&f.dryRun, "dry-run", false, "Show what would change without writing anything")
	flags.BoolVarP(&f.yes, "yes", "y", false, "Do not ask for confirmation")
	flags.BoolVar(&f.allowSecrets, "allow-secrets", false, "Accept a new message that looks like it contains credentials")
	flags.BoolVar(&f.asJSON, "json", false, "Print the result as JSON")
}

// overrides converts the flags the user actually passed into history.Overrides.
// Unset flags leave the original value alone; a flag set to "" is passed on
// so validation can reject it.
func (f *editFlags) overrides(cmd *cobra.Command) (history.Overrides, error) {
	var o history.Overrides
	changed := cmd.Flags().Changed

	if changed("author-name") {
		o.AuthorName = &f.author.name
	}
	if changed("author-email") {
		o.AuthorEmail = &f.author.email
	}
	if changed("committer-name") {
		o.CommitterName = &f.committer.name
	}
	if changed("committer-email") {
		o.CommitterEmail = &f.committer.email
	}

	var err error
	if o.AuthorTime, o.AuthorOffset, err = f.author.when(changed("author-date"), changed("author-offset")); err != nil {
		return o, fmt.Errorf("author: %w", err)
	}
	if o.CommitterTime, o.CommitterOffset, err = f.committer.when(changed("committer-date"), changed("committer-offset")); err != nil {
		return o, fmt.Errorf("committer: %w", err)
	}

	switch {
	case changed("message"):
		o.Message = &f.message
	case changed("message-file"):
		msg, err := readMessageFile(cmd.InOrStdin(), f.messageFile)
		if err != nil {
			return o, err
		}
		o.Message = &msg
	}
	return o, nil
}

// when parses the date and offset flags. An RFC 3339 date carries its own
// offset, which is used unless --*-offset is given too.
func (s signatureFlags) when(dateSet, offsetSet bool) (*int64, *int, error) {
	var (
		seconds *int64
		offset  *int
	)

	if dateSet {
		unix, zone, err := parseDate(s.date)
		if err != nil {
			return nil, nil, err
		}
		seconds = &unix
		if zone != nil {
			offset = zone
		}
	}

	if offsetSet {
		minutes, err := parseOffset(s.offset)
		if err != nil {
			return nil, nil, err
		}
		offset = &minutes
	}
	return seconds, offset, nil
}

// parseDate accepts unix seconds or an RFC 3339 timestamp. The zone offset
// is returned only for RFC 3339 input.
func parseDate(value string) (int64, *int, error) {
	value = strings.TrimSpace(value)
	if unix, err := strconv.ParseInt(value, 10, 64); err == nil {
		return unix, nil, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid date %q: want RFC 3339 (2024-01-15T09:30:00+02:00) or unix seconds", value)
	}
	_, zone := t.Zone()
	minutes := zone / 60
	return t.Unix(), &minutes, nil
}

// parseOffset parses a git style zone offset such as +0200, -0530 or 0000
// into minutes east of UTC.
func parseOffset(value string) (int, error) {
	value = strings.TrimSpace(value)
	invalid := fmt.Errorf("invalid offset %q: want ±HHMM, e.g. +0200", value)

	sign := 1
	switch {
	case strings.HasPrefix(value, "+"):
		value = value[1:]
	case strings.HasPrefix(value, "-"):
		sign = -1
		value = value[1:]
	}
	if len(value) != 4 {
		return 0, invalid
	}

	hours, err := strconv.Atoi(value[:2])
	if err != nil {
		return 0, invalid
	}
	minutes, err := strconv.Atoi(value[2:])
	if err != nil || minutes >= 60 {
		return 0, invalid
	}
	return sign * (hours*60 + minutes), nil
}

func readMessageFile(stdin io.Reader, path string) (string, error) {
	if path == "" {
		return "", errors.New("--message-file needs a path")
	}

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path) //nolint:gosec // path is supplied by the user on purpose
	}
	if err != nil {
		return "", fmt.Errorf("reading message file: %w", err)
	}
	return string(data), nil
}
