package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cyberbuddy/internal/auth"
	"cyberbuddy/internal/backend"
	"cyberbuddy/internal/config"
	"cyberbuddy/internal/logging"
	"cyberbuddy/internal/terminal"
	"cyberbuddy/internal/ui"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// maxLoginAttempts bounds the interactive login prompt
const maxLoginAttempts = 3

var errPasswordMismatch = errors.New("passwords do not match")

// app holds the components shared by every command
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	client  *backend.Client
	auth    *auth.Service
	display *ui.Display
	reader  *terminal.Reader
	out     io.Writer
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		a          = &app{out: os.Stdout}
		configPath string
		noMarkdown bool
	)

	cmd := &cobra.Command{
		Use:   "cyberbuddy",
		Short: "Terminal client for the Cyber Buddy security assistant",
		Long: `Cyber Buddy answers cybersecurity questions, reviews attachments and
scans suspicious URLs. Run without arguments to start an interactive chat.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg)
			if noMarkdown {
				cfg.Markdown = false
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			a.setup(cfg)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runChat(cmd.Context())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&configPath, "config", config.DefaultPath(), "Config file path")
	flags.String("backend-url", "", "Backend base URL")
	flags.Duration("timeout", 0, "Request timeout (e.g. 90s)")
	flags.Bool("verbose", false, "Enable debug logging")
	flags.BoolVar(&noMarkdown, "no-markdown", false, "Print replies as plain text")

	cmd.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newForgotPasswordCmd(a),
		newResetPasswordCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// applyFlags overrides config values with flags the user actually set
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("backend-url") {
		cfg.BackendURL, _ = flags.GetString("backend-url")
	}
	if flags.Changed("timeout") {
		cfg.RequestTimeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("verbose") {
		cfg.Verbose, _ = flags.GetBool("verbose")
	}
}

// setup builds the shared components from cfg
func (a *app) setup(cfg *config.Config) {
	logger, err := logging.New(cfg.LogPath, cfg.Verbose)
	if err != nil {
		// Logging is best effort
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		logger = zap.NewNop()
	}

	a.cfg = cfg
	a.logger = logger
	a.client = backend.NewClient(cfg.BackendURL, cfg.RequestTimeout)
	a.auth = auth.NewService(a.client, auth.NewTokenStore(cfg.TokenPath), logger.Named("auth"))
	a.display = ui.NewDisplay(a.out, ui.Options{Markdown: cfg.Markdown, ShowSource: cfg.ShowSource})
	a.reader = terminal.NewReader(os.Stdin, a.out)

	logger.Debug("configuration loaded",
		zap.String("backend", cfg.BackendURL),
		zap.Duration("timeout", cfg.RequestTimeout))
}

// signalContext cancels on interrupt or termination
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newLoginCmd(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return a.login(ctx, email)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return a.register(ctx)
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.auth.Logout(); err != nil {
				return err
			}
			a.display.PrintSuccess("Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := a.auth.Restore()
			if err != nil {
				return err
			}
			if !found {
				return auth.ErrNoToken
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			user, err := a.auth.Me(ctx)
			if err != nil {
				return errors.New(backend.ErrorMessage(err, "Could not fetch your profile"))
			}
			a.display.PrintUser(user)
			return nil
		},
	}
}

func newForgotPasswordCmd(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Email yourself a password reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return a.forgotPassword(ctx, email)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	return cmd
}

func newResetPasswordCmd(a *app) *cobra.Command {
	var email, token string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with the token from a reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return a.resetPassword(ctx, email, token)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email from the reset link")
	cmd.Flags().StringVar(&token, "token", "", "Token from the reset link")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cyberbuddy %s\n", version)
		},
	}
}

// login prompts for credentials until one attempt succeeds
func (a *app) login(ctx context.Context, email string) error {
	var lastErr error
	for attempt := 0; attempt < maxLoginAttempts; attempt++ {
		if email == "" || attempt > 0 {
			var err error
			if email, err = a.reader.ReadLine("Email: "); err != nil {
				return err
			}
		}
		password, err := a.reader.ReadPassword("Password: ")
		if err != nil {
			return err
		}

		lastErr = a.auth.Login(ctx, email, password)
		if lastErr == nil {
			a.display.PrintSuccess("Logged in as " + email)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.display.PrintError(a.authMessage(lastErr, "Login failed. Please try again."))
	}
	return lastErr
}

// register prompts for account details and creates the account
func (a *app) register(ctx context.Context) error {
	name, err := a.reader.ReadLine("Name: ")
	if err != nil {
		return err
	}
	email, err := a.reader.ReadLine("Email: ")
	if err != nil {
		return err
	}
	password, err := a.readNewPassword()
	if err != nil {
		return err
	}

	if err := a.auth.Register(ctx, name, email, password); err != nil {
		return errors.New(a.authMessage(err, "Registration failed"))
	}
	a.display.PrintSuccess("Account created. Welcome, " + name + "!")
	return nil
}

// forgotPassword requests a reset link
func (a *app) forgotPassword(ctx context.Context, email string) error {
	if email == "" {
		var err error
		if email, err = a.reader.ReadLine("Email: "); err != nil {
			return err
		}
	}
	if err := a.auth.ForgotPassword(ctx, email); err != nil {
		return errors.New(a.authMessage(err, "Error sending reset link."))
	}
	a.display.PrintSuccess("If this email exists, a reset link has been sent.")
	return nil
}

// resetPassword sets a new password, prompting for anything not given as a flag
func (a *app) resetPassword(ctx context.Context, email, token string) error {
	var err error
	if email == "" {
		if email, err = a.reader.ReadLine("Email: "); err != nil {
			return err
		}
	}
	if token == "" {
		if token, err = a.reader.ReadLine("Reset token: "); err != nil {
			return err
		}
	}
	password, err := a.readNewPassword()
	if err != nil {
		return err
	}

	if err := a.auth.ResetPassword(ctx, token, email, password); err != nil {
		return errors.New(a.authMessage(err, "Error resetting password."))
	}
	a.display.PrintSuccess("Password updated. Log in with `cyberbuddy login`.")
	return nil
}

// readNewPassword prompts for a password twice
func (a *app) readNewPassword() (string, error) {
	password, err := a.reader.ReadPassword("Password: ")
	if err != nil {
		return "", err
	}
	again, err := a.reader.ReadPassword("Confirm password: ")
	if err != nil {
		return "", err
	}
	if password != again {
		return "", errPasswordMismatch
	}
	return password, nil
}

// authMessage maps an auth error to display text
func (a *app) authMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, auth.ErrMissingEmail),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrMissingPassword),
		errors.Is(err, auth.ErrMissingName),
		errors.Is(err, auth.ErrMissingToken):
		return err.Error()
	default:
		return backend.ErrorMessage(err, fallback)
	}
}
