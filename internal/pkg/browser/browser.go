package browser

import (
	"fmt"
	"io"
	"log/slog"

	pkgbrowser "github.com/pkg/browser"
)

// Navigator prints the address and tries to open it in the system browser.
// Failing to launch a browser is not an error: the printed address is enough.
type Navigator struct {
	out    io.Writer
	logger *slog.Logger
	open   func(rawURL string) error
}

func NewNavigator(out io.Writer, logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	// The launcher's own output would mix with the command's.
	pkgbrowser.Stdout = io.Discard
	pkgbrowser.Stderr = io.Discard

	return &Navigator{
		out:    out,
		logger: logger,
		open:   pkgbrowser.OpenURL,
	}
}

func (n *Navigator) Open(rawURL string) error {
	if _, err := fmt.Fprintf(n.out, "Open this address to sign in with Google:\n\n  %s\n\n", rawURL); err != nil {
		return err
	}

	if err := n.open(rawURL); err != nil {
		n.logger.Debug("could not launch a browser", "error", err)
	}
	return nil
}
