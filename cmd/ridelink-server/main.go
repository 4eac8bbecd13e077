package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/fx"

	"github.com/ridelinkhq/ridelink/internal/config"
	"github.com/ridelinkhq/ridelink/internal/database"
	"github.com/ridelinkhq/ridelink/internal/logger"
	"github.com/ridelinkhq/ridelink/internal/repository/postgres"
	"github.com/ridelinkhq/ridelink/internal/seed"
	"github.com/ridelinkhq/ridelink/internal/server"
)

func main() {
	Execute()
}

var seedFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ridelink-server",
	Short: "The ridelink ride-sharing backend",
	Long: `ridelink-server is the REST backend for the ridelink ride-sharing app.
It verifies Google sign-in credentials, issues session tokens, and serves
ride listing, publishing, and booking.`,
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo users and rides from a YAML fixture",
	RunE:  runSeed,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	config.InitFlags()
	rootCmd.PersistentFlags().AddFlagSet(pflag.CommandLine)
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")
	seedCmd.Flags().StringVar(&seedFile, "file", "fixtures.yaml", "Path to the YAML fixture file")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.InitLogger(&cfg.Logging); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := fx.New(
		fx.Supply(cfg),
		fx.WithLogger(logger.FxLogger),
		server.Module,
		fx.Invoke(func(lc fx.Lifecycle, srv *server.Server, shutdowner fx.Shutdowner) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						if err := srv.Start(ctx); err != nil {
							logger.Error("server stopped", zap.Error(err))
						}
						_ = shutdowner.Shutdown()
					}()
					return nil
				},
			})
		}),
	)

	app.Run()
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return errMissingDatabaseURL
	}

	if err := database.RunMigrations(cfg.Database.URL); err != nil {
		return err
	}
	pterm.Success.Println("migrations applied")
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return errMissingDatabaseURL
	}

	fixture, err := seed.Parse(seedFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := database.NewPool(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	users := postgres.NewUserRepository(pool)
	rides := postgres.NewRideRepository(pool)
	if err := seed.Run(ctx, fixture, users, rides); err != nil {
		return err
	}

	pterm.Success.Printfln("seeded %d users and %d rides", len(fixture.Users), len(fixture.Rides))
	return nil
}

var errMissingDatabaseURL = fmt.Errorf("database.url is required, please adjust the config or pass --database-url or RIDELINK_DATABASE_URL environment variable")
