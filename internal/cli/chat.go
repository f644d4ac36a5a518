package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"finassist/internal/assistant"
)

const (
	bannerTitle = "👋 Hi, I'm your CLI financial tool assistant."
	bannerBody  = `I can help you with 3 things:
  1. 🧾 Subscriptions – "Show me my recurring payments"
  2. 🧰 Financial Products – "List some financial tools I could use"
  3. 🎯 Financial Goals – "Add a new goal to save for vacation"

If your request doesn't match one of those, I'll let you know I can't help.

How can I help today?`

	Goodbye        = "👋 Thanks for using the financial assistant. Goodbye!"
	inputPrompt    = "> "
	continuePrompt = "Would you like to ask something else? (y/n): "
)

var exitWords = map[string]bool{"exit": true, "quit": true, "q": true}

var errInterrupted = errors.New("interrupted")

type Asker interface {
	Ask(ctx context.Context, userID, prompt string, opts assistant.Options) assistant.Outcome
}

type styles struct {
	title lipgloss.Style
	err   lipgloss.Style
	muted lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		title: r.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true),
		err:   r.NewStyle().Foreground(lipgloss.Color("#EF4444")),
		muted: r.NewStyle().Foreground(lipgloss.Color("#6B7280")),
	}
}

func (s styles) outcome(o assistant.Outcome) string {
	switch o.Kind {
	case assistant.KindError:
		return s.err.Render(o.Text)
	case assistant.KindNoMatch:
		return s.muted.Render(o.Text)
	}
	return o.Text
}

// Session is the interactive request loop. A session runs once.
type Session struct {
	asker  Asker
	userID string
	out    io.Writer
	lines  <-chan string
	done   chan struct{}
	stop   sync.Once
	style  styles
}

func NewSession(a Asker, userID string, in io.Reader, out io.Writer) *Session {
	done := make(chan struct{})
	return &Session{asker: a, userID: userID, out: out, lines: scanLines(in, done), done: done, style: newStyles(out)}
}

// scanLines feeds input lines to a channel so reads can be abandoned on cancel.
// The reader stops once done is closed.
func scanLines(in io.Reader, done <-chan struct{}) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-done:
				return
			}
		}
	}()
	return ch
}

// Run prints the banner and serves requests until the user leaves, input ends,
// or ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	defer s.stop.Do(func() { close(s.done) })

	fmt.Fprintln(s.out, s.style.title.Render(bannerTitle))
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, bannerBody)

	for {
		line, err := s.read(ctx, inputPrompt)
		if err != nil {
			return s.leave(err)
		}
		if exitWords[strings.ToLower(strings.TrimSpace(line))] {
			return s.leave(nil)
		}

		out := s.asker.Ask(ctx, s.userID, line, assistant.Options{})
		fmt.Fprintf(s.out, "\n%s\n\n", s.style.outcome(out))

		answer, err := s.read(ctx, continuePrompt)
		if err != nil {
			return s.leave(err)
		}
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			return s.leave(nil)
		}
	}
}

func (s *Session) read(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	select {
	case <-ctx.Done():
		return "", errInterrupted
	case line, ok := <-s.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
}

// leave prints the goodbye line. Interrupts and end of input are normal exits.
func (s *Session) leave(err error) error {
	if errors.Is(err, errInterrupted) {
		fmt.Fprintln(s.out)
	}
	fmt.Fprintf(s.out, "\n%s\n", Goodbye)
	return nil
}
