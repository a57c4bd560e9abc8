package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/namespacer/internal"
	"github.com/starford/namespacer/internal/batch"
	"github.com/starford/namespacer/internal/mcpserver"
	"github.com/starford/namespacer/internal/notify"
	pkgconfig "github.com/starford/namespacer/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

// open builds a runtime for one-shot commands. stdout is theirs, so the
// log goes to stderr.
func open(cmd *cli.Command, opts ...internal.Option) (*internal.Runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	opts = append([]internal.Option{internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr)}, opts...)
	return internal.Open(opts...)
}

func process(ctx context.Context, cmd *cli.Command) error {
	rt, err := open(cmd, internal.WithNotifier(notify.NewWriter(os.Stdout)))
	if err != nil {
		return err
	}
	defer rt.Close()

	confirmer := newTerminalConfirmer(os.Stdin, os.Stdout)
	if cmd.Bool("yes") {
		confirmer = batch.AutoConfirm
	}

	res, err := rt.Processor.Run(ctx, confirmer)
	if err != nil {
		return fmt.Errorf("process: %w", err)
	}
	if res.RunID != 0 {
		fmt.Fprintf(os.Stdout, "run %d: %s\n", res.RunID, res.State)
	}
	return nil
}

func preview(ctx context.Context, cmd *cli.Command) error {
	rt, err := open(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	text, err := rt.Processor.Preview(ctx)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	fmt.Fprintln(os.Stdout, text)
	return nil
}

func history(_ context.Context, cmd *cli.Command) error {
	rt, err := open(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	runs, err := rt.Journal.Runs(int(cmd.Int("limit")))
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "No runs yet.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSTATE\tPLANNED\tAPPLIED\tRESTORED\tERROR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.State, r.Planned, r.Applied, r.Restored, r.Error)
	}
	return tw.Flush()
}

func serveMCP(_ context.Context, cmd *cli.Command) error {
	rt, err := open(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	return mcpserver.New(rt.Processor, rt.Settings).ServeStdio()
}

func main() {
	cmd := &cli.Command{
		Name:   "namespacer",
		Usage:  "Adds a namespace line derived from each note's folder to Markdown notes",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Watch the vault for new notes and serve the HTTP API",
				Action: serve,
			},
			{
				Name:  "process",
				Usage: "Add namespace lines to all existing notes",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Skip the confirmation prompt",
					},
				},
				Action: process,
			},
			{
				Name:   "preview",
				Usage:  "Show which notes would get a namespace line",
				Action: preview,
			},
			{
				Name:  "history",
				Usage: "List recent batch runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of runs to show",
						Value: 20,
					},
				},
				Action: history,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
