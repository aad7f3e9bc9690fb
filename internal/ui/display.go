// Package ui renders the chat to the terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"cyberbuddy/internal/backend"
	"cyberbuddy/internal/chat"
	"cyberbuddy/internal/history"
	"cyberbuddy/internal/terminal"
)

// Color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

var (
	bucketStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	currentStyle = lipgloss.NewStyle().Bold(true)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	scanStyle    = boxStyle.BorderForeground(lipgloss.Color("3"))
)

// Options configures a Display
type Options struct {
	// Markdown renders assistant replies with glamour
	Markdown bool
	// ShowSource prints the source tag under assistant replies
	ShowSource bool
	// Width overrides the detected terminal width when positive
	Width int
	// Style is a glamour style name; empty picks one from the terminal
	Style string
}

// Display provides the terminal UI
type Display struct {
	out        io.Writer
	width      int
	showSource bool
	renderer   *glamour.TermRenderer

	indicatorMu sync.Mutex
	spinner     *terminal.Spinner
}

// NewDisplay creates a display writing to out
func NewDisplay(out io.Writer, opts Options) *Display {
	width := opts.Width
	if width <= 0 {
		width = terminalWidth()
	}

	d := &Display{
		out:        out,
		width:      width,
		showSource: opts.ShowSource,
		spinner:    terminal.NewSpinner(out),
	}

	if opts.Markdown {
		style := glamour.WithAutoStyle()
		if opts.Style != "" {
			style = glamour.WithStandardStyle(opts.Style)
		}
		// Create markdown renderer
		renderer, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(max(width-10, 20)))
		if err == nil {
			d.renderer = renderer
		}
	}
	return d
}

// PrintWelcome displays the banner
func (d *Display) PrintWelcome(backendURL string) {
	banner := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("6")).
		Border(lipgloss.DoubleBorder()).
		Padding(0, 4).
		Render("Cyber Buddy - your security assistant")
	fmt.Fprintln(d.out, banner)
	fmt.Fprintf(d.out, "%sBackend:%s %s\n", colorGray, colorReset, backendURL)
	fmt.Fprintf(d.out, "%sType a message, or /help for commands%s\n\n", colorGray, colorReset)
}

// PrintHelp lists the REPL commands
func (d *Display) PrintHelp() {
	fmt.Fprint(d.out, `Commands:
  /new                 start a new chat
  /list                list chats (today, yesterday, older)
  /open <n>            switch to chat n from /list
  /delete <n>          delete chat n from /list
  /show                show the messages of the current chat
  /edit <n> <text>     rewrite message n from /show and regenerate the reply
  /scan <url>          scan a URL and ask about the result
  /attach <path>       attach an image or text file to the next message
  /detach              drop the pending attachment
  /search <query>      search your chats
  /copy                copy the last reply to the clipboard
  /me                  show the logged-in account
  /avatar <path>       upload a new profile picture
  /logout              log out and quit
  /help                show this help
  /exit                quit
`)
}

// Prompt returns the input prompt, noting a pending attachment
func (d *Display) Prompt(att *history.Attachment) string {
	if att != nil {
		return fmt.Sprintf("\n%s📎 %s%s\n%s%s❯%s ", colorGray, att.Name, colorReset, colorBold, colorGreen, colorReset)
	}
	return fmt.Sprintf("\n%s%s❯%s ", colorBold, colorGreen, colorReset)
}

// PrintSidebar prints the chat list grouped by recency. Chats are numbered in
// display order, which is the order of Buckets.Flatten.
func (d *Display) PrintSidebar(b history.Buckets, current history.SessionID) {
	if b.Len() == 0 {
		d.PrintInfo("No chats yet")
		return
	}

	n := 1
	groups := []struct {
		name     string
		sessions []history.Session
	}{
		{"TODAY", b.Today},
		{"YESTERDAY", b.Yesterday},
		{"OLDER", b.Older},
	}
	for _, g := range groups {
		if len(g.sessions) == 0 {
			continue
		}
		fmt.Fprintln(d.out, bucketStyle.Render(g.name))
		for _, sess := range g.sessions {
			marker := " "
			if sess.ID == current {
				marker = "*"
			}
			line := fmt.Sprintf("%s%3d. %s", marker, n, truncate(sess.Title, max(d.width-12, 20)))
			if sess.ID == current {
				line = currentStyle.Render(line)
			}
			if sess.ID.IsPending() {
				line += colorGray + " (unsaved)" + colorReset
			}
			fmt.Fprintln(d.out, line)
			n++
		}
	}
}

// PrintMessages prints the messages of a session, numbered from 1
func (d *Display) PrintMessages(messages []history.Message) {
	if len(messages) == 0 {
		d.PrintInfo("No messages yet. Say hello!")
		return
	}
	for i, msg := range messages {
		d.PrintMessage(i+1, msg)
	}
}

// PrintMessage displays one message
func (d *Display) PrintMessage(n int, msg history.Message) {
	ts := msg.Timestamp.Local().Format("15:04:05")

	if msg.Sender == history.SenderUser {
		fmt.Fprintf(d.out, "\n%s┌─ [%d] You · %s%s\n", colorGray, n, ts, colorReset)
		if chat.IsScanReport(msg.Text) {
			fmt.Fprintln(d.out, scanStyle.Render(msg.Text))
		} else {
			for _, line := range strings.Split(msg.Text, "\n") {
				fmt.Fprintf(d.out, "%s│%s %s\n", colorGray, colorReset, line)
			}
		}
		if msg.File != nil {
			fmt.Fprintf(d.out, "%s│ 📎 %s (%s)%s\n", colorGray, msg.File.Name, msg.File.Kind, colorReset)
		}
		fmt.Fprintf(d.out, "%s└%s\n", colorGray, colorReset)
		return
	}

	fmt.Fprintf(d.out, "\n%s┌─ [%d] Cyber Buddy · %s%s\n", colorGray, n, ts, colorReset)
	for _, line := range strings.Split(d.render(msg.Text), "\n") {
		fmt.Fprintf(d.out, "%s│%s %s\n", colorGray, colorReset, line)
	}
	if d.showSource && msg.Source != "" {
		fmt.Fprintf(d.out, "%s│ 📚 Source: %s%s\n", colorGray, msg.Source, colorReset)
	}
	fmt.Fprintf(d.out, "%s└%s\n", colorGray, colorReset)
}

// PrintAttachment previews a pending attachment
func (d *Display) PrintAttachment(a *history.Attachment) {
	body := fmt.Sprintf("📎 %s\nkind: %s", a.Name, a.Kind)
	if a.Kind == history.AttachmentText {
		body += "\n\n" + truncate(firstLines(a.Content, 5), 400)
	}
	fmt.Fprintln(d.out, boxStyle.Width(min(d.width, 80)-2).Render(body))
}

// PrintSearchResults lists chat search hits
func (d *Display) PrintSearchResults(results []backend.SearchResult) {
	if len(results) == 0 {
		d.PrintInfo("No matching chats")
		return
	}
	for _, r := range results {
		title := r.Title
		if title == "" {
			title = history.DefaultTitle
		}
		fmt.Fprintf(d.out, "%s%s%s", colorBold, title, colorReset)
		if !r.CreatedAt.IsZero() {
			fmt.Fprintf(d.out, " %s%s%s", colorGray, r.CreatedAt.Local().Format(time.DateOnly), colorReset)
		}
		fmt.Fprintln(d.out)
		if r.Snippet != "" {
			fmt.Fprintf(d.out, "  %s%s%s\n", colorDim, truncate(r.Snippet, 100), colorReset)
		}
	}
}

// PrintUser shows the logged-in account
func (d *Display) PrintUser(u *backend.User) {
	fmt.Fprintf(d.out, "%s%s%s <%s>\n", colorBold, u.Name, colorReset, u.Email)
}

// PrintInfo displays info message
func (d *Display) PrintInfo(msg string) {
	fmt.Fprintf(d.out, "%sℹ %s%s\n", colorCyan, msg, colorReset)
}

// PrintWarning displays warning message
func (d *Display) PrintWarning(msg string) {
	fmt.Fprintf(d.out, "%s⚠ %s%s\n", colorYellow, msg, colorReset)
}

// PrintError displays error message
func (d *Display) PrintError(msg string) {
	fmt.Fprintf(d.out, "%s✗ %s%s\n", colorRed, msg, colorReset)
}

// PrintSuccess displays success message
func (d *Display) PrintSuccess(msg string) {
	fmt.Fprintf(d.out, "%s✓ %s%s\n", colorGreen, msg, colorReset)
}

// PrintGoodbye displays goodbye message
func (d *Display) PrintGoodbye() {
	fmt.Fprintf(d.out, "\n%s%sStay safe out there! 👋%s\n", colorBold, colorCyan, colorReset)
}

func (d *Display) render(text string) string {
	if d.renderer == nil {
		return text
	}
	rendered, err := d.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(rendered, "\n")
}

// Helper functions

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func firstLines(s string, n int) string {
	lines := strings.SplitN(s, "\n", n+1)
	if len(lines) > n {
		lines = append(lines[:n], "...")
	}
	return strings.Join(lines, "\n")
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}
