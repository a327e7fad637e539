package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/qsc591/seatboard/go/internal/board"
	"github.com/qsc591/seatboard/go/internal/board/mirror"
	"github.com/qsc591/seatboard/go/internal/board/tui"
)

type globalFlags struct {
	configPath string
	serverURL  string
	groupID    string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "seatboard: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "seatboard",
		Short: "Operator board for captured seat QR codes",
		Long: `seatboard polls a QR board server, shows every seat with its pending QR
codes and countdowns, and lets the operator consume the current QR and move on
to the next seat.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", defaultConfigPath, "YAML config file")
	cmd.PersistentFlags().StringVarP(&flags.serverURL, "server", "s", "", "Board server base URL")
	cmd.PersistentFlags().StringVarP(&flags.groupID, "group", "g", "", "Group id for multi-group servers")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newRunCmd(flags),
		newServeCmd(flags),
		newSnapshotCmd(flags),
		newExportCSVCmd(flags),
		newGroupsCmd(flags),
	)
	return cmd
}

// resolveConfig loads .env and the config file, then applies flags on top.
func resolveConfig(cmd *cobra.Command, flags *globalFlags) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config, err := loadConfig(flags.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, err
	}
	if flags.serverURL != "" {
		config.Server.URL = flags.serverURL
	}
	if flags.groupID != "" {
		config.Server.GroupID = flags.groupID
	}
	if flags.logLevel != "" {
		config.Log.Level = flags.logLevel
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	var mirrorAddr string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the terminal board",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			closer, err := setupLogging(config.Log.Level, config.Log.File, true)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			services, err := setupServices(ctx, config)
			if err != nil {
				return err
			}
			defer services.Close()

			sink := tui.NewFrameSink()
			unsubscribe := services.Engine.Subscribe(sink)
			defer unsubscribe()

			engineDone := make(chan error, 1)
			go func() { engineDone <- services.Engine.Run(ctx) }()

			addr := config.Mirror.Addr
			if mirrorAddr != "" {
				addr = mirrorAddr
			}
			var mirrorDone <-chan error
			if addr != "" {
				mirrorDone = superviseMirror(ctx, cancel, addr, setupMirror(config, services, addr).Start)
			} else {
				closed := make(chan error)
				close(closed)
				mirrorDone = closed
			}

			title := "Seat board"
			if config.Server.GroupID != "" {
				title += " · " + config.Server.GroupID
			}
			tuiErr := tui.Run(ctx, services.Engine, sink, title)

			cancel()
			if err := <-engineDone; err != nil {
				log.Error().Err(err).Msg("board engine failed")
			}
			if err := <-mirrorDone; err != nil {
				return fmt.Errorf("board mirror: %w", err)
			}
			return tuiErr
		},
	}
	cmd.Flags().StringVar(&mirrorAddr, "mirror", "", "Also serve the board mirror on this address")
	return cmd
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the board headless and serve it over HTTP and websockets",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			if _, err := setupLogging(config.Log.Level, "", false); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			services, err := setupServices(ctx, config)
			if err != nil {
				return err
			}
			defer services.Close()

			if addr == "" {
				addr = config.Mirror.Addr
			}
			if addr == "" {
				addr = mirror.DefaultConfig().Addr
			}

			engineDone := make(chan error, 1)
			go func() { engineDone <- services.Engine.Run(ctx) }()

			err = setupMirror(config, services, addr).Start(ctx)
			cancel()
			<-engineDone
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default :17890)")
	return cmd
}

func newSnapshotCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch the board once and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			if _, err := setupLogging(config.Log.Level, "", false); err != nil {
				return err
			}
			loc, err := config.location()
			if err != nil {
				return err
			}

			snap, err := newClient(config).FetchSnapshot(cmd.Context())
			if err != nil {
				return err
			}
			frame := renderOnce(snap, loc)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(frame)
			}
			return printFrame(cmd.OutOrStdout(), frame)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the rendered frame as JSON")
	return cmd
}

// renderOnce renders snap the way the board would right after its first poll.
func renderOnce(snap *board.Snapshot, loc *time.Location) board.Frame {
	state, _ := board.Step(board.State{}, board.PollDue{})
	state, _ = board.Step(state, board.SnapshotFetched{Origin: board.OriginPoll, Snapshot: snap})
	return board.Render(state, board.RenderOptions{Location: loc})
}

func printFrame(w io.Writer, frame board.Frame) error {
	fmt.Fprintln(w, frame.Stats.Text)
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tSEAT\tLABEL\tSTATUS\tTIMER\tCOUNT")
	for _, row := range frame.Seats {
		marker := ""
		if row.Selected {
			marker = ">"
		}
		label := row.Label.Primary
		if row.Label.Secondary != "" {
			label += " " + row.Label.Secondary
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", marker, row.SeatKey, label, row.Pill, row.Timer, row.Tally)
	}
	return tw.Flush()
}

func newExportCSVCmd(flags *globalFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export-csv",
		Short: "Download the scan log as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			if _, err := setupLogging(config.Log.Level, "", false); err != nil {
				return err
			}

			data, err := newClient(config).DownloadCSV(cmd.Context())
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			log.Info().Str("file", output).Int("bytes", len(data)).Msg("scan log exported")
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func newGroupsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List the groups of a multi-group server",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			if _, err := setupLogging(config.Log.Level, "", false); err != nil {
				return err
			}

			groups, err := newClient(config).ListGroups(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tKIND\tLOCKED\tPENDING\tCOMPLETED")
			for _, g := range groups {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%d\t%d/%d\n",
					g.GroupID, g.Name, g.Kind, g.Locked,
					g.Stats.PendingTotal, g.Stats.CompletedSeats, g.Stats.TotalSeats)
			}
			return tw.Flush()
		},
	}
}
