package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ashureev/chatbot-ai/internal/auth"
	"github.com/ashureev/chatbot-ai/internal/capability"
	"github.com/ashureev/chatbot-ai/internal/config"
)

type rootOptions struct {
	dbPath    string
	ephemeral bool
	verbose   bool
	exportDir string
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	opts := &rootOptions{}
	var a *app

	root := &cobra.Command{
		Use:           "chat",
		Short:         "Terminal client for the ChatBot AI demo",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)

			repo, err := openRepository(opts.dbPath, opts.ephemeral)
			if err != nil {
				return err
			}
			a = newApp(repo, in, out, logger)
			a.exportDir = opts.exportDir
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a == nil {
				return nil
			}
			return a.repo.Close()
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&opts.dbPath, "db", defaultDBPath(), "SQLite file holding the signed-in session")
	root.PersistentFlags().BoolVar(&opts.ephemeral, "ephemeral", false, "keep the session in memory only")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging to stderr")
	root.PersistentFlags().StringVar(&opts.exportDir, "export-dir", ".", "directory for /export files")

	getApp := func() *app { return a }
	root.AddCommand(
		newLoginCmd(getApp),
		newRegisterCmd(getApp),
		newLogoutCmd(getApp),
		newWhoamiCmd(getApp),
		newChatCmd(getApp),
	)
	return root
}

func newLoginCmd(getApp func() *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with any email and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := getApp()
			var err error
			if email == "" {
				if email, err = promptLine(a.in, a.out, "Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = promptPassword(a.in, a.out, "Password: "); err != nil {
					return err
				}
			}
			user, err := a.login(cmd.Context(), email, password)
			if err != nil {
				return authError(a, "Sign in failed", err)
			}
			fmt.Fprintf(a.out, "[Welcome back!] You have successfully signed in as %s.\n", user.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func newRegisterCmd(getApp func() *app) *cobra.Command {
	var in auth.RegisterInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a demo account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := getApp()
			var err error
			if in.Name == "" {
				if in.Name, err = promptLine(a.in, a.out, "Name: "); err != nil {
					return err
				}
			}
			if in.Email == "" {
				if in.Email, err = promptLine(a.in, a.out, "Email: "); err != nil {
					return err
				}
			}
			if in.Password == "" {
				if in.Password, err = promptPassword(a.in, a.out, "Password: "); err != nil {
					return err
				}
				if in.ConfirmPassword, err = promptPassword(a.in, a.out, "Confirm password: "); err != nil {
					return err
				}
			}
			user, err := a.register(cmd.Context(), in)
			if err != nil {
				return authError(a, "Registration failed", err)
			}
			fmt.Fprintf(a.out, "[Welcome!] Your account has been created successfully, %s.\n", user.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&in.ConfirmPassword, "confirm-password", "", "password confirmation")
	return cmd
}

func authError(a *app, title string, err error) error {
	if verr, ok := auth.IsValidation(err); ok {
		fmt.Fprintf(a.out, "[%s] %s\n", title, verr.Message)
	}
	return err
}

func newLogoutCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the signed-in session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := getApp()
			if err := a.logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := getApp()
			user, err := a.currentUser(cmd.Context())
			if err != nil {
				fmt.Fprintln(a.out, "Not signed in.")
				return nil
			}
			fmt.Fprintf(a.out, "%s <%s>\n", user.Name, user.Email)
			return nil
		},
	}
}

func newChatCmd(getApp func() *app) *cobra.Command {
	var noVoice bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := getApp()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.clipboard = capability.SystemClipboard{}
			if s := capability.NewCommandSpeaker(cfg.Voice.TTSCommand); s != nil {
				a.speaker = s
			}
			if r := capability.NewCommandRecognizer(cfg.Voice.STTCommand); r != nil && !noVoice {
				a.recognizer = r
			}
			return a.runChat(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&noVoice, "no-voice", false, "disable voice input even when STT_COMMAND is set")
	return cmd
}
