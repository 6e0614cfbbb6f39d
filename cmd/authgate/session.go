package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ideatrek/authgate/app/authgate"
	"github.com/ideatrek/authgate/core/auth"
	"github.com/ideatrek/authgate/core/logger"
)

const passwordEnv = "AUTHGATE_PASSWORD"

var cookieFile string

func defaultCookieFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".authgate-cookies"
	}
	return filepath.Join(dir, "authgate", "cookies")
}

func openLocal(cmd *cobra.Command) (*authgate.Local, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.ForEnv(cfg.Env, cfg.AppName, cfg.LogLevel, logger.WithOutput(cmd.ErrOrStderr()))
	if err := os.MkdirAll(filepath.Dir(cookieFile), 0o700); err != nil {
		return nil, fmt.Errorf("create cookie directory: %w", err)
	}
	return authgate.NewLocal(cfg, cookieFile, log)
}

func addCookieFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&cookieFile, "cookies", defaultCookieFile(), "Cookie file holding the session")
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func describe(err error) error {
	var e *auth.Error
	if errors.As(err, &e) {
		if e.Attempts > 1 {
			return fmt.Errorf("%s (%s, %d attempts)", e.Message, e.Kind, e.Attempts)
		}
		return fmt.Errorf("%s (%s)", e.Message, e.Kind)
	}
	return err
}

func signInCmd() *cobra.Command {
	var (
		email    string
		password string
		signUp   bool
	)

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email and password",
		Long:  "Sign in and store the session in the cookie file. The password may also come from " + passwordEnv + ".",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv(passwordEnv)
			}
			local, err := openLocal(cmd)
			if err != nil {
				return err
			}

			op := local.Auth.SignIn
			if signUp {
				op = local.Auth.SignUp
			}
			sess, err := op(cmd.Context(), local.Store, email, password)
			if err != nil {
				return describe(err)
			}
			if sess == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Check your email to confirm your account.")
				return nil
			}
			return printJSON(cmd, sess)
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password")
	cmd.Flags().BoolVar(&signUp, "signup", false, "Register a new account instead of signing in")
	_ = cmd.MarkFlagRequired("email")
	addCookieFlag(cmd)
	return cmd
}

func signOutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signout",
		Short: "End the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			local, err := openLocal(cmd)
			if err != nil {
				return err
			}
			if err := local.Auth.SignOut(cmd.Context(), local.Store); err != nil {
				return describe(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
	addCookieFlag(cmd)
	return cmd
}

func sessionCmd() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			local, err := openLocal(cmd)
			if err != nil {
				return err
			}
			if refresh {
				if _, err := local.Store.Refresh(cmd.Context()); err != nil {
					return fmt.Errorf("refresh session: %w", err)
				}
			}
			sess, err := local.Store.Get(cmd.Context())
			if err != nil {
				return fmt.Errorf("read session: %w", err)
			}
			if sess == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			return printJSON(cmd, sess)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Refresh the session before showing it")
	addCookieFlag(cmd)
	return cmd
}
