// Package cli wires configuration, logging and the database manager into
// the neemo command line: the interactive shell (the root command), the
// HTTP server and a version command.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adfharrison1/neemo/pkg/config"
	"github.com/adfharrison1/neemo/pkg/db"
	"github.com/adfharrison1/neemo/pkg/domain"
	"github.com/adfharrison1/neemo/pkg/logging"
	"github.com/adfharrison1/neemo/pkg/shell"
)

const (
	Version = "0.3.0"
)

// NewRootCmd builds the neemo command tree. Each tree reads its settings
// through its own viper instance.
func NewRootCmd() *cobra.Command {
	v := config.NewViper()

	root := &cobra.Command{
		Use:   "neemo",
		Short: "embedded document database",
		Long: fmt.Sprintf(`neemo (v%s)

An embedded, schema-less document database with equality, range and
full-text indexes. Without a subcommand neemo reads shell commands from
standard input. Every flag can also be set as NEEMO_<FLAG>, e.g.
NEEMO_DATA_DIR=/var/lib/neemo, or in a .env file.`, Version),
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadEnvFiles()
		},
		PreRunE: bindFlags(v),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, v)
		},
	}
	config.AddStorageFlags(root)

	key := "format"
	root.Flags().String(key, "json", config.WrapString("Output format of the shell (json, yaml)"))

	key = "interactive"
	root.Flags().Bool(key, false, config.WrapString("Print prompts even when standard input is not a terminal"))

	root.AddCommand(newServeCmd(v))
	root.AddCommand(newLoadCmd(v))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of neemo",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "neemo v%s\n", Version)
		},
	})
	return root
}

// Execute runs the command line. This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func bindFlags(v *viper.Viper) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		return v.BindPFlags(cmd.Flags())
	}
}

// session is everything a command needs to talk to the databases.
type session struct {
	cfg    *config.Config
	logger logging.Logger
	mgr    *db.Manager
	closer io.Closer
}

func (s *session) Close() error {
	err := s.mgr.Close()
	if cerr := s.closer.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// openSession loads the configuration, opens the log and the manager, and
// makes the configured database active.
func openSession(v *viper.Viper) (*session, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	logger, closer, err := cfg.Logger()
	if err != nil {
		return nil, err
	}

	mgr, err := db.NewManager(cfg.DataDir, cfg.DatabaseOptions(logger)...)
	if err != nil {
		closer.Close()
		return nil, err
	}
	if cfg.Database != db.DefaultDatabase {
		_, err = mgr.Use(cfg.Database)
		if errors.Is(err, domain.ErrNotFound) {
			_, err = mgr.Create(cfg.Database)
		}
		if err != nil {
			mgr.Close()
			closer.Close()
			return nil, err
		}
	}
	logger.Infof("[cli] data directory %s, database %s, engine %s", cfg.DataDir, cfg.Database, cfg.Engine)
	return &session{cfg: cfg, logger: logger, mgr: mgr, closer: closer}, nil
}

func runShell(cmd *cobra.Command, v *viper.Viper) error {
	s, err := openSession(v)
	if err != nil {
		return err
	}
	defer s.Close()

	format, err := shell.ParseFormat(s.cfg.Format)
	if err != nil {
		return err
	}
	in := cmd.InOrStdin()
	sh := shell.New(s.mgr, in, cmd.OutOrStdout(),
		shell.WithFormat(format),
		shell.WithInteractive(v.GetBool("interactive") || isTerminal(in)),
		shell.WithTimeout(s.cfg.Timeout),
		shell.WithLogger(s.logger),
	)
	return sh.Run(cmd.Context())
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
