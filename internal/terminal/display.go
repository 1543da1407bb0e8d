package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"chat-gateway/internal/models"
)

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorCyan  = "\033[36m"
	colorGray  = "\033[90m"
	colorBlue  = "\033[34m"

	defaultWidth = 80
)

// Display renders chat turns to a terminal. When the output is not a TTY it
// prints plain text without colours, markdown styling or the typing placeholder.
type Display struct {
	out      io.Writer
	tty      bool
	renderer *glamour.TermRenderer
	mu       sync.Mutex
}

// NewDisplay creates a display writing to out.
func NewDisplay(out io.Writer) *Display {
	d := &Display{out: out}

	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return d
	}
	d.tty = true

	width := defaultWidth
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 20 {
		width = w
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	if err == nil {
		d.renderer = renderer
	}
	return d
}

// PrintWelcome shows the banner for a new chat.
func (d *Display) PrintWelcome(serverURL string) {
	d.printf("%schat-gateway%s connected to %s\n", colorCyan, colorReset, serverURL)
	d.printf("%sType a message, /reset to start over, /exit to quit%s\n\n", colorGray, colorReset)
}

// PrintPrompt shows the input prompt.
func (d *Display) PrintPrompt() {
	d.printf("%s> %s", colorBlue, colorReset)
}

// PrintGoodbye is shown when the chat ends.
func (d *Display) PrintGoodbye() {
	d.printf("\n%sGoodbye!%s\n", colorCyan, colorReset)
}

// PrintNotice shows a dim informational line.
func (d *Display) PrintNotice(msg string) {
	d.printf("%s%s%s\n", colorGray, msg, colorReset)
}

// PrintError shows a failed turn.
func (d *Display) PrintError(err error) {
	d.printf("%s✗ %v%s\n", colorRed, err, colorReset)
}

// ShowTurn renders one role-tagged turn with its timestamp.
func (d *Display) ShowTurn(role, text string, at time.Time) {
	stamp := at.Format("15:04")
	switch role {
	case models.RoleUser:
		if d.tty {
			// The typed line is already on screen.
			d.printf("%s%s you%s\n", colorGray, stamp, colorReset)
			return
		}
		d.printf("[%s] you: %s\n", stamp, text)
	default:
		d.printf("%s%s %s%s\n", colorGray, stamp, role, colorReset)
		d.printf("%s\n", d.renderMarkdown(text))
	}
}

// StartTyping shows an animated placeholder until the returned func is called.
func (d *Display) StartTyping() (stop func()) {
	if !d.tty {
		return func() {}
	}

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(400 * time.Millisecond)
		defer ticker.Stop()

		dots := 0
		for {
			d.printf("\r%styping%s%s", colorGray, strings.Repeat(".", dots+1)+strings.Repeat(" ", 2-dots), colorReset)
			select {
			case <-done:
				d.printf("\r%s\r", strings.Repeat(" ", 12))
				return
			case <-ticker.C:
				dots = (dots + 1) % 3
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-finished
		})
	}
}

func (d *Display) renderMarkdown(text string) string {
	if d.renderer == nil {
		return text
	}
	out, err := d.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func (d *Display) printf(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.tty {
		format = stripColors(format)
		for i, a := range args {
			if s, ok := a.(string); ok {
				args[i] = stripColors(s)
			}
		}
	}
	fmt.Fprintf(d.out, format, args...)
}

var colorReplacer = strings.NewReplacer(colorReset, "", colorRed, "", colorCyan, "", colorGray, "", colorBlue, "")

func stripColors(s string) string {
	return colorReplacer.Replace(s)
}
