package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/PaulBabatuyi/clique-gRPC/internal/chatv1"
	"github.com/PaulBabatuyi/clique-gRPC/internal/client"
	"github.com/PaulBabatuyi/clique-gRPC/internal/client/session"
	"github.com/PaulBabatuyi/clique-gRPC/internal/logger"
)

// settings are the CLI defaults read from the environment. Flags override them.
type settings struct {
	Addr     string        `env:"CLIQUE_ADDR" envDefault:"localhost:50051"`
	Home     string        `env:"CLIQUE_HOME"`
	TLS      bool          `env:"CLIQUE_TLS" envDefault:"false"`
	Timeout  time.Duration `env:"CLIQUE_TIMEOUT" envDefault:"10s"`
	LogLevel string        `env:"CLIQUE_LOG_LEVEL" envDefault:"warn"`
}

var (
	cfg    settings
	appCtx *client.App
	conn   *grpc.ClientConn
)

func sessionPath() string { return filepath.Join(cfg.Home, "session.json") }

func Execute() error {
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRoot().ExecuteContext(ctx)
	if err != nil {
		report(os.Stderr, err)
	}
	if ferr := finish(); ferr != nil {
		fmt.Fprintln(os.Stderr, "save session:", ferr)
		return errors.Join(err, ferr)
	}
	return err
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "clique",
		Short:         "Chat with friends, groups and channels from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				cfg.Home = filepath.Join(dir, ".clique")
			}
			if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
				return err
			}

			log, err := logger.NewWithWriter(os.Stderr, cfg.LogLevel, "console")
			if err != nil {
				return err
			}

			saved, err := session.Load(sessionPath())
			if err != nil {
				log.Warn().Err(err).Msg("ignoring saved session")
			}
			store := session.Restore(saved)

			conn, err = client.Dial(cfg.Addr, store, cfg.TLS)
			if err != nil {
				return err
			}
			appCtx = client.New(chatv1.NewChatServiceClient(conn), store, log)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfg.Addr, "addr", cfg.Addr, "server address (env CLIQUE_ADDR)")
	root.PersistentFlags().StringVar(&cfg.Home, "home", cfg.Home, "config dir (default ~/.clique)")
	root.PersistentFlags().BoolVar(&cfg.TLS, "tls", cfg.TLS, "use TLS to reach the server")
	root.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-call timeout")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	root.AddCommand(
		signUpCmd(), signInCmd(), signOutCmd(), whoamiCmd(), refreshCmd(),
		profileCmd(), searchCmd(),
		dmCmd(), conversationsCmd(), historyCmd(), sendCmd(), watchCmd(),
		groupCmd(), channelCmd(),
	)
	return root
}

// finish persists the session and closes the connection. It is a no-op
// when the root hook never ran (for example with --help).
func finish() error {
	if appCtx == nil {
		return nil
	}
	return errors.Join(appCtx.Session().Save(sessionPath()), conn.Close())
}

// callCtx bounds a single RPC by the --timeout flag.
func callCtx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), cfg.Timeout)
}

func requireSession() (session.Session, error) {
	cur, ok := appCtx.Session().Current()
	if !ok {
		return session.Session{}, fmt.Errorf("not signed in. use `clique signin`")
	}
	return cur, nil
}
