package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"

	"cyberbuddy/internal/attachment"
	"cyberbuddy/internal/auth"
	"cyberbuddy/internal/backend"
	"cyberbuddy/internal/chat"
	"cyberbuddy/internal/history"
	"cyberbuddy/internal/terminal"
	"cyberbuddy/internal/ui"
)

// errQuit ends the REPL
var errQuit = errors.New("quit")

// writeClipboard is swapped out in tests
var writeClipboard = clipboard.WriteAll

// repl is one logged-in interactive chat
type repl struct {
	ctrl    *chat.Controller
	client  *backend.Client
	auth    *auth.Service
	display *ui.Display
	logger  *zap.Logger
	maxSize int64
}

// runChat logs in if needed, loads history and runs the REPL until exit
func (a *app) runChat(ctx context.Context) error {
	found, err := a.auth.Restore()
	if err != nil {
		return err
	}
	if !found {
		a.display.PrintInfo("Please log in to continue")
		loginCtx, stop := signalContext(ctx)
		err := a.login(loginCtx, "")
		stop()
		if err != nil {
			return err
		}
	}

	ctrl := chat.New(a.client,
		chat.WithLogger(a.logger.Named("chat")),
		chat.WithConfirm(a.reader.Confirm),
	)
	defer ctrl.Close()

	go a.display.Watch(ctx, ctrl.Subscribe(ctx), ctrl.State)

	a.display.PrintWelcome(a.cfg.BackendURL)
	if err := ctrl.LoadHistory(ctx); err != nil {
		if backend.IsUnauthorized(err) {
			_ = a.auth.Logout()
			return errors.New("your session has expired, run `cyberbuddy login` again")
		}
		a.display.PrintWarning(backend.ErrorMessage(err, "Could not load your chat history"))
	}

	r := &repl{
		ctrl:    ctrl,
		client:  a.client,
		auth:    a.auth,
		display: a.display,
		logger:  a.logger.Named("repl"),
		maxSize: a.cfg.MaxAttachmentSize,
	}
	return r.run(ctx, a.reader)
}

// run reads lines until EOF, /exit or /logout
func (r *repl) run(ctx context.Context, reader *terminal.Reader) error {
	defer r.display.PrintGoodbye()

	for {
		line, err := reader.ReadLine(r.display.Prompt(r.ctrl.Attachment()))
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		if err := r.handle(ctx, line); errors.Is(err, errQuit) {
			return nil
		}
	}
}

// handle runs one input line. Errors other than errQuit are reported
// to the user and swallowed.
func (r *repl) handle(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	// Interrupt cancels the running request instead of the program
	ctx, stop := signalContext(ctx)
	defer stop()

	cmd, ok := terminal.ParseCommand(line)
	if !ok {
		r.send(ctx, line)
		return nil
	}

	switch cmd.Name {
	case "exit", "quit":
		return errQuit
	case "help":
		r.display.PrintHelp()
	case "new":
		r.ctrl.StartNewSession()
		r.display.PrintSuccess("Started a new chat")
	case "list":
		r.display.PrintSidebar(r.ctrl.Buckets(), r.ctrl.Current())
	case "open":
		r.open(cmd.Args)
	case "delete":
		r.delete(ctx, cmd.Args)
	case "show":
		r.display.PrintMessages(r.ctrl.Messages())
	case "edit":
		r.edit(ctx, cmd.Args)
	case "scan":
		r.scan(ctx, cmd.Args)
	case "attach":
		r.attach(cmd.Args)
	case "detach":
		r.ctrl.ClearAttachment()
		r.display.PrintInfo("Attachment removed")
	case "search":
		r.search(ctx, cmd.Args)
	case "me":
		r.me(ctx)
	case "avatar":
		r.avatar(ctx, cmd.Args)
	case "copy":
		r.copyReply()
	case "logout":
		r.ctrl.Close()
		if err := r.auth.Logout(); err != nil {
			r.report(err, "Could not remove the saved session")
		} else {
			r.display.PrintSuccess("Logged out")
		}
		return errQuit
	default:
		r.display.PrintWarning(fmt.Sprintf("Unknown command /%s. Type /help for the list.", cmd.Name))
	}
	return nil
}

func (r *repl) send(ctx context.Context, text string) {
	before := len(r.ctrl.Messages())
	err := r.ctrl.Send(ctx, text)
	r.display.StopIndicator()

	if errors.Is(err, chat.ErrNoCurrentSession) {
		r.display.PrintWarning("No chat was open, so a new one was started. Please send your message again.")
		return
	}
	r.printFrom(before)
	if err != nil {
		r.report(err, chat.FailedResponseText)
	}
}

func (r *repl) open(args string) {
	sess, err := r.pick(args)
	if err != nil {
		r.report(err, "")
		return
	}
	if err := r.ctrl.SelectSession(sess.ID); err != nil {
		r.report(err, "")
		return
	}
	r.display.PrintInfo("Opened: " + sess.Title)
	r.display.PrintMessages(r.ctrl.Messages())
}

func (r *repl) delete(ctx context.Context, args string) {
	sess, err := r.pick(args)
	if err != nil {
		r.report(err, "")
		return
	}
	if err := r.ctrl.DeleteSession(ctx, sess.ID); err != nil {
		r.report(err, "Failed to delete chat")
		return
	}
	r.display.PrintSuccess("Deleted: " + sess.Title)
}

func (r *repl) edit(ctx context.Context, args string) {
	num, text, _ := strings.Cut(args, " ")
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 {
		r.display.PrintWarning("Usage: /edit <n> <new text>, where n is a message number from /show")
		return
	}

	index := n - 1
	err = r.ctrl.EditMessage(ctx, text, index)
	r.display.StopIndicator()
	if err != nil {
		r.report(err, "Failed to edit message")
		return
	}

	messages := r.ctrl.Messages()
	if index+1 < len(messages) && messages[index+1].Sender == history.SenderAssistant &&
		messages[index].Sender == history.SenderUser {
		r.display.PrintMessage(n, messages[index])
		r.display.PrintMessage(n+1, messages[index+1])
		return
	}
	r.printFrom(max(len(messages)-2, 0))
}

func (r *repl) scan(ctx context.Context, target string) {
	before := len(r.ctrl.Messages())
	err := r.ctrl.ScanURL(ctx, target)
	r.display.StopIndicator()

	r.printFrom(before)
	if err != nil {
		r.report(err, "Failed to scan URL")
	}
}

func (r *repl) attach(path string) {
	if path == "" {
		r.display.PrintWarning("Usage: /attach <path>")
		return
	}

	att, err := attachment.Load(path, r.maxSize)
	switch {
	case errors.Is(err, os.ErrNotExist):
		r.display.PrintError("File not found: " + path)
		if wd, wdErr := os.Getwd(); wdErr == nil {
			for _, s := range terminal.SuggestFiles(wd, path, 5) {
				r.display.PrintInfo("Did you mean " + s + "?")
			}
		}
		return
	case errors.Is(err, attachment.ErrTooLarge):
		r.display.PrintError(fmt.Sprintf("File is larger than %d KB", r.maxSize/1024))
		return
	case err != nil:
		r.report(err, "Could not attach file")
		return
	}

	r.ctrl.Attach(att)
	r.display.PrintAttachment(att)
}

func (r *repl) search(ctx context.Context, query string) {
	if query == "" {
		r.display.PrintWarning("Usage: /search <query>")
		return
	}
	results, err := r.client.Search(ctx, query)
	if err != nil {
		r.report(err, "Search failed")
		return
	}
	r.display.PrintSearchResults(results)
}

func (r *repl) me(ctx context.Context) {
	user, err := r.auth.Me(ctx)
	if err != nil {
		r.report(err, "Could not fetch your profile")
		return
	}
	r.display.PrintUser(user)
}

func (r *repl) avatar(ctx context.Context, path string) {
	if path == "" {
		r.display.PrintWarning("Usage: /avatar <image path>")
		return
	}

	img, err := attachment.LoadImage(path, r.maxSize)
	switch {
	case errors.Is(err, os.ErrNotExist):
		r.display.PrintError("File not found: " + path)
		return
	case errors.Is(err, attachment.ErrNotImage):
		r.display.PrintError("Only image files are allowed")
		return
	case errors.Is(err, attachment.ErrTooLarge):
		r.display.PrintError(fmt.Sprintf("Image must be less than %d KB", r.maxSize/1024))
		return
	case err != nil:
		r.report(err, "Could not read image")
		return
	}

	user, err := r.client.UploadAvatar(ctx, img.Name, img.MIME, img.Data)
	if err != nil {
		r.report(err, "Failed to update profile picture")
		return
	}
	r.logger.Info("avatar updated", zap.String("avatar", user.Avatar))
	r.display.PrintSuccess("Profile picture updated successfully!")
}

func (r *repl) copyReply() {
	messages := r.ctrl.Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Sender != history.SenderAssistant {
			continue
		}
		if err := writeClipboard(messages[i].Text); err != nil {
			r.report(err, "Clipboard is not available")
			return
		}
		r.display.PrintSuccess("Copied the last reply to the clipboard")
		return
	}
	r.display.PrintInfo("Nothing to copy yet")
}

// pick resolves a chat number from /list
func (r *repl) pick(args string) (history.Session, error) {
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		return history.Session{}, errors.New("expected a chat number from /list")
	}
	sessions := r.ctrl.Buckets().Flatten()
	if n < 1 || n > len(sessions) {
		return history.Session{}, fmt.Errorf("no chat numbered %d", n)
	}
	return sessions[n-1], nil
}

// printFrom prints the current session's messages starting at index
func (r *repl) printFrom(index int) {
	messages := r.ctrl.Messages()
	for i := index; i < len(messages); i++ {
		r.display.PrintMessage(i+1, messages[i])
	}
}

// report shows err to the user. Controller sentinels print as they are,
// backend failures show the server's message or fallback.
func (r *repl) report(err error, fallback string) {
	switch {
	case errors.Is(err, chat.ErrCancelled):
		r.display.PrintInfo("Cancelled")
	case errors.Is(err, chat.ErrBusy),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrEmptyURL),
		errors.Is(err, chat.ErrSessionNotFound),
		errors.Is(err, chat.ErrPendingSession),
		errors.Is(err, chat.ErrInvalidIndex),
		errors.Is(err, chat.ErrClosed):
		r.display.PrintWarning(err.Error())
	case errors.Is(err, context.Canceled):
		r.display.PrintInfo("Interrupted")
	default:
		r.logger.Debug("request failed", zap.Error(err))
		if fallback == "" {
			fallback = err.Error()
		}
		r.display.PrintError(backend.ErrorMessage(err, fallback))
	}
}
