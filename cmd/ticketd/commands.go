package main

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ticketbase/ticketd/cache"
	"github.com/ticketbase/ticketd/chain"
	"github.com/ticketbase/ticketd/chain/evm"
	"github.com/ticketbase/ticketd/config"
	"github.com/ticketbase/ticketd/db"
	"github.com/ticketbase/ticketd/logger"
	"github.com/ticketbase/ticketd/market"
	"github.com/ticketbase/ticketd/notify"
	"github.com/ticketbase/ticketd/pipeline"
	"github.com/ticketbase/ticketd/refund"
	"github.com/ticketbase/ticketd/ticket"
	"github.com/ticketbase/ticketd/verify"
)

// Version is set at build time.
var Version = "dev"

func InitRootCmd(rootCmd *cobra.Command) {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(refundsCmd())
	rootCmd.AddCommand(resaleCmd())
	rootCmd.AddCommand(versionCmd())
}

// app bundles everything a command needs after setup.
type app struct {
	home     string
	cfg      config.Config
	log      zerolog.Logger
	gateway  chain.Gateway
	database *db.DB
	sink     notify.Sink
	registry chain.ContractRef
	nft      chain.ContractRef
	resale   chain.ContractRef
}

func setup(cmd *cobra.Command) (*app, error) {
	home, _ := cmd.Flags().GetString("home")
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		home = filepath.Join(userHome, ".ticketd")
	}

	cfg, err := config.Load(home)
	if err != nil {
		defaults, derr := config.LoadDefaultConfig()
		if derr != nil {
			return nil, derr
		}
		cfg = *defaults
	}
	if v := os.Getenv("TICKETD_PRIVATE_KEY"); v != "" {
		cfg.PrivateKeyHex = v
	}
	if v := os.Getenv("PINATA_JWT"); v != "" {
		cfg.PinataJWT = v
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.LogSampler)

	gateway, err := evm.NewClient(evm.Options{
		RPCURLs:             cfg.RPCURLs,
		ChainID:             cfg.ChainID,
		PrivateKeyHex:       cfg.PrivateKeyHex,
		ReceiptPollInterval: time.Duration(cfg.ReceiptPollSeconds) * time.Second,
	}, log)
	if err != nil {
		return nil, err
	}

	database, err := db.OpenFileDB(home, cfg.DBFileName, true)
	if err != nil {
		return nil, err
	}

	return &app{
		home:     home,
		cfg:      cfg,
		log:      log,
		gateway:  gateway,
		database: database,
		sink:     consoleSink{out: cmd.OutOrStdout()},
		registry: chain.ContractRef{Name: evm.ContractRegistry, Address: cfg.RegistryAddress},
		nft:      chain.ContractRef{Name: evm.ContractTicketNFT, Address: cfg.TicketNFT},
		resale:   chain.ContractRef{Name: evm.ContractResale, Address: cfg.ResaleAddress},
	}, nil
}

func (a *app) close() {
	if a.database != nil {
		if err := a.database.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close database")
		}
	}
}

// loadTickets reads the full registry listing.
func (a *app) loadTickets(ctx context.Context) ([]*ticket.Record, error) {
	out, err := a.gateway.Read(ctx, a.registry, "getRecentTickets")
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	rows, ok := out[0].([][]any)
	if !ok {
		return nil, fmt.Errorf("unexpected registry output shape")
	}
	return ticket.DecodeTuples(rows)
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file to the home directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, _ := cmd.Flags().GetString("home")
			if home == "" {
				userHome, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(userHome, ".ticketd")
			}
			cfg, err := config.LoadDefaultConfig()
			if err != nil {
				return err
			}
			if err := config.Save(cfg, home); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote default config under %s\n", home)
			return nil
		},
	}
}

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Browse events from the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			ctx := cmd.Context()

			records, err := a.loadTickets(ctx)
			if err != nil {
				return err
			}
			snapshot := cache.New(a.log)
			snapshot.UpdateTickets(records)

			entries := market.Project(snapshot.Snapshot(), market.Options{
				Currency:    a.cfg.CurrencySymbol,
				UploadsBase: a.cfg.UploadsBase,
			})

			featured, _ := cmd.Flags().GetInt("featured")
			upcoming, _ := cmd.Flags().GetBool("upcoming")
			trending, _ := cmd.Flags().GetBool("trending")
			switch {
			case featured > 0:
				entries = market.Featured(entries, featured)
			case upcoming:
				entries = market.Upcoming(entries)
			case trending:
				entries = market.Trending(entries)
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				marker := " "
				if e.Trending {
					marker = "*"
				}
				fmt.Fprintf(out, "%s #%-4d %-30s %-9s %s  %s  left:%d  [%s]\n",
					marker, e.ID, e.Name, e.Status, e.Date.Format("2006-01-02"), e.Price, e.TicketsLeft, e.Category)
			}
			return nil
		},
	}
	cmd.Flags().Int("featured", 0, "show the top N featured upcoming events")
	cmd.Flags().Bool("upcoming", false, "show upcoming events only")
	cmd.Flags().Bool("trending", false, "show trending events only")
	return cmd
}

func verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <token-id-or-qr-payload>",
		Short: "Verify a ticket against a selected event",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			ctx := cmd.Context()

			engine := verify.NewEngine(a.gateway, verify.NewStoreLedger(a.database), a.sink, a.registry, a.nft, a.log)

			eventID, _ := cmd.Flags().GetUint64("event")
			operator, _ := cmd.Flags().GetString("operator")

			if eventID == 0 || len(args) == 0 {
				// Nothing to verify yet; list the operator's events.
				options, err := engine.EventOptions(ctx, operator)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, rec := range options {
					fmt.Fprintf(out, "#%-4d %-30s %s\n", rec.ID, rec.EventName, ticket.EventTime(rec).Format("2006-01-02 15:04"))
				}
				return nil
			}

			engine.SelectEvent(eventID)
			res, err := engine.Verify(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "event:    %s (%s)\n", res.EventName, res.EventStatus)
			fmt.Fprintf(out, "date:     %s\n", res.EventDate.Format("2006-01-02 15:04"))
			fmt.Fprintf(out, "location: %s\n", res.Location)
			fmt.Fprintf(out, "owner:    %s\n", res.Owner)
			fmt.Fprintf(out, "verdict:  %s\n", res.Message)

			checkIn, _ := cmd.Flags().GetBool("check-in")
			if checkIn && res.IsValid && !res.AlreadyUsed {
				if err := engine.CheckIn(res); err != nil {
					return err
				}
				count, err := engine.CheckedInCount(eventID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "checked in: %d total for this event\n", count)
			}
			return nil
		},
	}
	cmd.Flags().Uint64("event", 0, "event id to verify against")
	cmd.Flags().Bool("check-in", false, "check the ticket in when it is valid")
	cmd.Flags().String("operator", "", "filter selectable events to this creator address")
	return cmd
}

func refundsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refunds",
		Short: "List claimable refunds, optionally claiming them all",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			ctx := cmd.Context()

			address, _ := cmd.Flags().GetString("address")
			if address == "" {
				return fmt.Errorf("--address is required")
			}

			claimer := refund.NewClaimer(a.gateway, a.registry, a.sink, a.database,
				time.Duration(a.cfg.ClaimDelaySeconds)*time.Second, a.log)

			candidates, err := claimer.Refundable(ctx, address)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(candidates) == 0 {
				fmt.Fprintln(out, "no claimable refunds")
				return nil
			}
			for _, c := range candidates {
				fmt.Fprintf(out, "#%-4d %-30s %s %s (%s)\n",
					c.Ticket.ID, c.Ticket.EventName, refund.FormatWei(c.PaidWei), a.cfg.CurrencySymbol, c.Status)
			}
			fmt.Fprintf(out, "total refundable: %s %s\n",
				refund.FormatWei(refund.TotalRefundable(candidates)), a.cfg.CurrencySymbol)

			claimAll, _ := cmd.Flags().GetBool("claim-all")
			if claimAll {
				claimed, failed := claimer.ClaimAll(ctx, candidates)
				fmt.Fprintf(out, "claimed %d, failed %d\n", claimed, failed)
			}
			return nil
		},
	}
	cmd.Flags().String("address", "", "attendee address to aggregate refunds for")
	cmd.Flags().Bool("claim-all", false, "submit claims for every pending refund")
	return cmd
}

func resaleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resale",
		Short: "List or buy tickets on the resale market",
	}
	cmd.AddCommand(resaleListCmd())
	cmd.AddCommand(resaleBuyCmd())
	return cmd
}

func resaleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <token-id> <price>",
		Short: "Approve and list an owned ticket at the given price",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			ctx := cmd.Context()

			tokenID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("bad token id %q", args[0])
			}
			price, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("bad price %q", args[1])
			}
			priceWei := price.Shift(18).BigInt()

			orch := pipeline.NewOrchestrator(a.gateway, a.sink, a.log)
			run, err := orch.Start(ctx, args[0], pipeline.ListingSteps(a.nft, a.resale, tokenID, priceWei))
			if err != nil {
				return err
			}
			return run.Wait(ctx)
		},
	}
}

func resaleBuyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buy <token-id>",
		Short: "Buy a listed ticket at its asking price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			ctx := cmd.Context()

			tokenID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("bad token id %q", args[0])
			}

			out, err := a.gateway.Read(ctx, a.resale, "listings", tokenID)
			if err != nil {
				return err
			}
			if len(out) != 3 {
				return fmt.Errorf("unexpected listing output shape")
			}
			price, ok := out[1].(*big.Int)
			if !ok {
				return fmt.Errorf("unexpected listing price type")
			}
			active, _ := out[2].(bool)
			if !active {
				return fmt.Errorf("token %d is not listed for sale", tokenID)
			}

			orch := pipeline.NewOrchestrator(a.gateway, a.sink, a.log)
			run, err := orch.Start(ctx, args[0], pipeline.PurchaseSteps(a.resale, tokenID, price))
			if err != nil {
				return err
			}
			return run.Wait(ctx)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print ticketd version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ticketd %s\n", Version)
		},
	}
}

// consoleSink prints notifications for interactive use.
type consoleSink struct {
	out io.Writer
}

func (s consoleSink) Notify(n notify.Notification) {
	switch n.Level {
	case notify.LevelError:
		fmt.Fprintf(s.out, "[!!] %s\n", n.Message)
	case notify.LevelSuccess:
		fmt.Fprintf(s.out, "[ok] %s\n", n.Message)
	default:
		fmt.Fprintf(s.out, "[..] %s\n", n.Message)
	}
}
