package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/entireio/histedit/cmd/histedit/cli/history"

	"golang.org/x/term"
)

// signatureTimeLayout matches the layout git log uses for --date=iso.
const signatureTimeLayout = "2006-01-02 15:04:05 -0700"

// outputWithPager writes content through $PAGER when w is a terminal and the
// content is taller than the screen. Otherwise it writes directly.
func outputWithPager(ctx context.Context, w io.Writer, content string, enabled bool) {
	if f, ok := w.(*os.File); ok && enabled && term.IsTerminal(int(f.Fd())) { //nolint:gosec // Fd fits in int on supported platforms
		_, height, err := term.GetSize(int(f.Fd())) //nolint:gosec // see above
		if err != nil {
			height = 24
		}

		if strings.Count(content, "\n") > height-2 {
			pager := os.Getenv("PAGER")
			if pager == "" {
				pager = "less"
			}

			cmd := exec.CommandContext(ctx, pager) //nolint:gosec // pager from env is expected
			cmd.Stdin = strings.NewReader(content)
			cmd.Stdout = f
			cmd.Stderr = os.Stderr

			if err := cmd.Run(); err != nil {
				fmt.Fprint(w, content)
			}
			return
		}
	}

	fmt.Fprint(w, content)
}

// isTerminalWriter reports whether w is a terminal.
func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // Fd fits in int on supported platforms
}

// formatSignature renders "Name <email> 2024-01-15 09:30:00 +0200".
func formatSignature(name, email string, when int64, offsetMinutes int) string {
	t := time.Unix(when, 0).In(time.FixedZone("", offsetMinutes*60))
	return fmt.Sprintf("%s <%s> %s", name, email, t.Format(signatureTimeLayout))
}

func formatSignatureDetail(s history.SignatureDetail) string {
	return formatSignature(s.Name, s.Email, s.Time, s.OffsetMinutes)
}

func formatHistorySignature(s history.Signature) string {
	return formatSignature(s.Name, s.Email, s.When, s.OffsetMinutes)
}
