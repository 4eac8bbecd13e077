package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ridelinkhq/ridelink/internal/authclient"
	"github.com/ridelinkhq/ridelink/internal/config"
	"github.com/ridelinkhq/ridelink/internal/credstore"
	"github.com/ridelinkhq/ridelink/internal/logger"
	"github.com/ridelinkhq/ridelink/internal/models"
	"github.com/ridelinkhq/ridelink/internal/ridesapi"
	"github.com/ridelinkhq/ridelink/internal/session"
)

var (
	idToken      string
	searchOrigin string
	searchDest   string
	searchDate   string

	publishOrigin  string
	publishDest    string
	publishWhen    string
	publishSeats   int
	publishPrice   float64
	publishDetails string
)

// app bundles the client-side components for one CLI invocation.
type app struct {
	manager *session.Manager
	rides   *ridesapi.Client
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.InitLogger(&cfg.Logging); err != nil {
		return nil, err
	}

	store, err := credstore.NewFileStore(cfg.Client.CredentialsDir)
	if err != nil {
		return nil, err
	}

	auth := authclient.New(cfg.Client.BaseURL, cfg.Client.RequestTimeout)
	manager := session.NewManager(auth, store)
	manager.Initialize(context.Background())

	return &app{
		manager: manager,
		rides:   ridesapi.New(cfg.Client.BaseURL, cfg.Client.RequestTimeout),
	}, nil
}

// requireSession returns the current token or fails the command when the
// user is not signed in.
func (a *app) requireSession() (string, error) {
	snap := a.manager.Snapshot()
	if !snap.Authenticated() {
		return "", errors.New("not signed in, run `ridelink login` first")
	}
	return snap.Token, nil
}

var rootCmd = &cobra.Command{
	Use:   "ridelink",
	Short: "Command line client for the ridelink ride-sharing backend",
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with a Google ID token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if idToken == "" {
			return errors.New("an ID token is required, pass it with --id-token")
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.manager.Login(cmd.Context(), idToken); err != nil {
			return err
		}
		snap := a.manager.Snapshot()
		pterm.Success.Printfln("signed in as %s <%s>", snap.User.Name, snap.User.Email)
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		snap := a.manager.Snapshot()
		if !snap.Authenticated() {
			pterm.Info.Println("not signed in")
			return nil
		}
		pterm.Info.Printfln("%s <%s>", snap.User.Name, snap.User.Email)
		pterm.Info.Printfln("offers rides: %v, requests rides: %v", snap.User.IsRider, snap.User.IsPassenger)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		a.manager.Logout()
		pterm.Success.Println("signed out")
		return nil
	},
}

var ridesCmd = &cobra.Command{
	Use:   "rides",
	Short: "Search active rides",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		token, err := a.requireSession()
		if err != nil {
			return err
		}
		rides, err := a.rides.Search(cmd.Context(), token, ridesapi.SearchFilter{
			Origin:      searchOrigin,
			Destination: searchDest,
			Date:        searchDate,
		})
		if err != nil {
			return err
		}
		printRides(rides)
		return nil
	},
}

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List rides you published",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		token, err := a.requireSession()
		if err != nil {
			return err
		}
		rides, err := a.rides.Mine(cmd.Context(), token)
		if err != nil {
			return err
		}
		printRides(rides)
		return nil
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a ride offer",
	RunE: func(cmd *cobra.Command, args []string) error {
		if publishOrigin == "" || publishDest == "" || publishWhen == "" {
			return errors.New("--from, --to and --at are required")
		}
		departure, err := time.Parse(time.RFC3339, publishWhen)
		if err != nil {
			return fmt.Errorf("--at must be RFC3339, e.g. 2026-09-01T08:30:00Z: %w", err)
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		token, err := a.requireSession()
		if err != nil {
			return err
		}
		ride, err := a.rides.Publish(cmd.Context(), token, ridesapi.PublishRequest{
			Origin:         models.Location{Name: publishOrigin},
			Destination:    models.Location{Name: publishDest},
			DepartureTime:  departure,
			AvailableSeats: publishSeats,
			PricePerSeat:   publishPrice,
			Description:    publishDetails,
		})
		if err != nil {
			return err
		}
		pterm.Success.Printfln("published ride %s: %s -> %s", ride.ID, ride.Origin.Name, ride.Destination.Name)
		return nil
	},
}

var bookCmd = &cobra.Command{
	Use:   "book <ride-id>",
	Short: "Book a seat on a ride",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		token, err := a.requireSession()
		if err != nil {
			return err
		}
		ride, err := a.rides.Book(cmd.Context(), token, args[0])
		if err != nil {
			return err
		}
		pterm.Success.Printfln("booked a seat on %s -> %s (%d left)",
			ride.Origin.Name, ride.Destination.Name, ride.AvailableSeats)
		return nil
	},
}

func printRides(rides []models.Ride) {
	if len(rides) == 0 {
		pterm.Info.Println("no rides found")
		return
	}
	for _, ride := range rides {
		pterm.Info.Printfln("%s  %s -> %s  %s  %d seats  %.2f/seat  by %s",
			ride.ID,
			ride.Origin.Name,
			ride.Destination.Name,
			ride.DepartureTime.Local().Format("Mon 02 Jan 15:04"),
			ride.AvailableSeats,
			ride.PricePerSeat,
			ride.RiderName,
		)
	}
}

func init() {
	config.InitFlags()
	rootCmd.PersistentFlags().AddFlagSet(pflag.CommandLine)

	loginCmd.Flags().StringVar(&idToken, "id-token", "", "Google-issued ID token to exchange for a session")

	ridesCmd.Flags().StringVar(&searchOrigin, "from", "", "Filter by origin name")
	ridesCmd.Flags().StringVar(&searchDest, "to", "", "Filter by destination name")
	ridesCmd.Flags().StringVar(&searchDate, "date", "", "Filter by departure date (YYYY-MM-DD)")

	publishCmd.Flags().StringVar(&publishOrigin, "from", "", "Origin name")
	publishCmd.Flags().StringVar(&publishDest, "to", "", "Destination name")
	publishCmd.Flags().StringVar(&publishWhen, "at", "", "Departure time (RFC3339)")
	publishCmd.Flags().IntVar(&publishSeats, "seats", 1, "Available seats")
	publishCmd.Flags().Float64Var(&publishPrice, "price", 0, "Price per seat")
	publishCmd.Flags().StringVar(&publishDetails, "description", "", "Free-form description")

	rootCmd.AddCommand(loginCmd, whoamiCmd, logoutCmd, ridesCmd, mineCmd, publishCmd, bookCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
