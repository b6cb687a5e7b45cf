package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ludexapp/ludex/internal/app"
	"github.com/ludexapp/ludex/internal/auth"
	"github.com/ludexapp/ludex/internal/logging"
	"github.com/ludexapp/ludex/internal/mockapi"
)

// newRootCmd builds the ludex command tree. Running it bare starts the TUI.
func newRootCmd() *cobra.Command {
	var opts app.Options

	root := &cobra.Command{
		Use:           "ludex",
		Short:         "Browse a game catalog from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "config file path (default ~/.config/ludex/config.toml)")
	flags.StringVar(&opts.PrefsPath, "prefs", "", "preferences file path (default ~/.config/ludex/prefs.toml)")
	flags.StringVar(&opts.APIURL, "api", "", "API base URL, overrides api_url")
	flags.IntVar(&opts.RefreshEvery, "refresh", 0, "background refresh interval in seconds")

	root.AddCommand(
		newTUICmd(&opts),
		newListCmd(&opts),
		newMockServerCmd(),
		newLoginCmd(&opts),
	)
	return root
}

func newTUICmd(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the terminal interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), *opts)
		},
	}
}

func newListCmd(opts *app.Options) *cobra.Command {
	var list app.ListOptions

	cmd := &cobra.Command{
		Use:       "list <" + strings.Join(app.Entities, "|") + ">",
		Short:     "Print one page of records, or all of them with --all",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: app.Entities,
		Example: `  ludex list platforms --search nintendo --order name=desc
  ludex list releases --platform 12 --filter region=eu --all
  ludex list items --collection 500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := app.Bootstrap(*opts)
			if err != nil {
				return err
			}
			defer func() { _ = env.Close() }()

			list.Entity = args[0]
			return app.List(cmd.Context(), env.Session, cmd.OutOrStdout(), list)
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&list.Search, "search", nil, "search term, key=value or a bare name (repeatable, | separates values)")
	f.StringArrayVar(&list.Filters, "filter", nil, "exact filter key=value (repeatable)")
	f.StringArrayVar(&list.Orders, "order", nil, "sort key=asc|desc (repeatable)")
	f.BoolVar(&list.All, "all", false, "follow every page")
	f.Int64SliceVar(&list.Platforms, "platform", nil, "platform ids for releases")
	f.Int64Var(&list.Collection, "collection", 0, "collection id for items")
	return cmd
}

func newMockServerCmd() *cobra.Command {
	var (
		addr     string
		tokenTTL time.Duration
	)

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Serve an in-memory demo catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(cmd.ErrOrStderr(), "info").WithPrefix("mockapi")
			srv := mockapi.New(mockapi.Seed(), mockapi.WithLogger(logger))

			token, err := srv.IssueToken(tokenTTL)
			if err != nil {
				return fmt.Errorf("issue demo token: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "api: http://%s%s\ntoken: %s\n", addr, mockapi.Prefix, token)

			hs := &http.Server{
				Addr:              addr,
				Handler:           srv,
				ReadHeaderTimeout: 5 * time.Second,
			}
			return serve(cmd.Context(), hs)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "listen address")
	cmd.Flags().DurationVar(&tokenTTL, "token-ttl", time.Hour, "lifetime of the printed demo token")
	return cmd
}

// serve runs hs until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, hs *http.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- hs.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLoginCmd(opts *app.Options) *cobra.Command {
	var tokens auth.Tokens

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store API tokens in the token file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(tokens.AccessToken) == "" {
				return errors.New("--token is required")
			}
			env, err := app.Bootstrap(*opts)
			if err != nil {
				return err
			}
			defer func() { _ = env.Close() }()

			if err := env.Tokens.Set(tokens); err != nil {
				return fmt.Errorf("store token: %w", err)
			}
			if exp, ok := auth.ExpiresAt(tokens.AccessToken); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "token stored, expires %s\n", exp.Local().Format(time.RFC1123))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "token stored")
			return nil
		},
	}
	cmd.Flags().StringVar(&tokens.AccessToken, "token", "", "access token")
	cmd.Flags().StringVar(&tokens.RefreshToken, "refresh-token", "", "refresh token")
	return cmd
}
