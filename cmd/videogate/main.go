package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/VideoGate/internal/app"
	"github.com/dharsanguruparan/VideoGate/internal/config"
	"github.com/dharsanguruparan/VideoGate/internal/logging"
	"github.com/dharsanguruparan/VideoGate/internal/model"
	"github.com/dharsanguruparan/VideoGate/internal/videos"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand(loadApp)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "videogate: %v\n", err)
		os.Exit(1)
	}
}

// appLoader builds the dependency graph; tests swap it for an in-memory one.
type appLoader func() (*app.App, error)

func loadApp() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Writer: os.Stderr})
	return app.New(cfg, logger), nil
}

func newRootCommand(load appLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "videogate",
		Short: "VideoGate gateway and operator CLI",
		Long: `VideoGate accepts authenticated video uploads, records their metadata and
queues them for processing. The subcommands run the server or inspect and
update records directly in the configured store.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newServeCmd(load),
		newStatusCmd(load),
		newListCmd(load),
		newLoginCmd(load),
	)
	return cmd
}

func newServeCmd(load appLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := load()
			if err != nil {
				return err
			}
			defer deps.Close()
			srv, err := deps.Server(cmd.Context())
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}
}

func newStatusCmd(load appLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Inspect or change a video's processing status",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <id>",
			Short: "Print a video record as JSON",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				deps, err := load()
				if err != nil {
					return err
				}
				defer deps.Close()
				store, err := deps.Store(cmd.Context())
				if err != nil {
					return err
				}
				video, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if video == nil {
					return fmt.Errorf("video %s not found", args[0])
				}
				return printJSON(cmd.OutOrStdout(), video)
			},
		},
		&cobra.Command{
			Use:   "set <id> <status>",
			Short: "Overwrite a video's status (stands in for the processing service)",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				deps, err := load()
				if err != nil {
					return err
				}
				defer deps.Close()
				store, err := deps.Store(cmd.Context())
				if err != nil {
					return err
				}
				status := model.Status(strings.TrimSpace(args[1]))
				if err := videos.UpdateStatus(cmd.Context(), store, args[0], status); err != nil {
					return fmt.Errorf("update %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", args[0], status)
				return nil
			},
		},
	)
	return cmd
}

func newListCmd(load appLoader) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the videos owned by a user id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := load()
			if err != nil {
				return err
			}
			defer deps.Close()
			store, err := deps.Store(cmd.Context())
			if err != nil {
				return err
			}
			list, err := store.ListByOwner(cmd.Context(), owner)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner id as returned by the auth service")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newLoginCmd(load appLoader) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange credentials for a token at the auth service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := load()
			if err != nil {
				return err
			}
			defer deps.Close()
			if password == "" {
				password = os.Getenv("VIDEOGATE_PASSWORD")
			}
			out, err := deps.Identity().Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Account name")
	cmd.Flags().StringVar(&password, "password", "", "Password (defaults to $VIDEOGATE_PASSWORD)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
