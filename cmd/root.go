package cmd

import (
	"fmt"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bookkar-cli/auth"
	"bookkar-cli/config"
	"bookkar-cli/logging"
	"bookkar-cli/service"
	"bookkar-cli/tui"
)

const appName = "bookkar"

var (
	version = "dev"
	commit  = "none"

	configPath string
)

var rootCmd = &cobra.Command{
	Use:           appName,
	Short:         "BookKar venue booking",
	Long:          `Browse venues, pick a date and a time slot and book it, all from the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(configPath)
		if err != nil {
			return err
		}
		defer app.close()

		_, err = tea.NewProgram(tui.New(app.deps()), tea.WithAltScreen()).Run()
		return err
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of BookKar",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), versionString())
	},
}

// Execute runs the command line. build and rev are stamped by the linker.
func Execute(build, rev string) {
	version, commit = build, rev
	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (default ./config.yaml)")
	rootCmd.AddCommand(versionCmd, venuesCmd, signupCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionString() string {
	out := appName + " " + version
	if commit != "none" && commit != "" {
		out += " (" + commit + ")"
	}
	return out
}

// app is what every command needs: configuration, a logger, the signed-in
// account and the API client acting on its behalf.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	auth   auth.Authenticator
	client *service.Client
}

func newApp(path string) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	httpClient := &http.Client{}
	authn, err := auth.New(cfg, httpClient, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	client := service.NewClient(httpClient,
		service.WithBaseURL(cfg.APIBaseURL),
		service.WithTimeout(cfg.RequestTimeout),
		service.WithLogger(logger),
		service.WithTokenSource(func() string {
			if u, ok := authn.Current(); ok {
				return u.IdToken
			}
			return ""
		}),
	)

	logger.Info("starting",
		zap.String("version", version),
		zap.String("env", cfg.Env),
		zap.String("auth_provider", cfg.AuthProvider),
	)
	return &app{cfg: cfg, logger: logger, auth: authn, client: client}, nil
}

func (a *app) deps() tui.Deps {
	return tui.Deps{Client: a.client, Auth: a.auth, Logger: a.logger, Config: a.cfg}
}

func (a *app) close() {
	_ = a.logger.Sync()
}
