package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/starford/roadmapper/internal"
	"github.com/starford/roadmapper/internal/parser"
	"github.com/starford/roadmapper/internal/render"
	"github.com/starford/roadmapper/internal/storage"
	pkgconfig "github.com/starford/roadmapper/pkg/config"
)

// Output formats for parse and generate.
const (
	formatTree    = "tree"
	formatJSON    = "json"
	formatOutline = "outline"
)

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: tree, json, or outline",
		Value:   formatTree,
	}
}

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP API and library watcher",
		Action: serve,
	}
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

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve roadmap tools over MCP stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
		},
	}
}

func parseCommand() *cli.Command {
	return &cli.Command{
		Name:      "parse",
		Usage:     "Parse a roadmap file (or stdin) and print its tree",
		ArgsUsage: "[file|-]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "topic", Aliases: []string{"t"}, Usage: "Root topic (defaults to the file header or name)"},
			&cli.StringFlag{Name: "match", Usage: "Reference matching: suffix or exact", Value: parser.MatchSuffix.String()},
			formatFlag(),
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			mode, ok := parser.ParseMatchMode(cmd.String("match"))
			if !ok {
				return fmt.Errorf("unknown match mode %q", cmd.String("match"))
			}

			name := cmd.Args().First()
			var data []byte
			var err error
			if name == "" || name == "-" {
				name = "stdin"
				data, err = io.ReadAll(os.Stdin)
			} else {
				data, err = os.ReadFile(name)
			}
			if err != nil {
				return fmt.Errorf("read roadmap: %w", err)
			}

			topic, raw := storage.DecodeRoadmap(name, data)
			if t := strings.TrimSpace(cmd.String("topic")); t != "" {
				topic = t
			}

			tree := parser.Parse(raw, topic, parser.WithMatchMode(mode))
			for _, d := range tree.Diagnostics {
				fmt.Fprintf(os.Stderr, "%s: %s\n", name, d)
			}
			return printTree(os.Stdout, cmd.String("format"), tree)
		},
	}
}

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Generate a roadmap for a topic, store it, and print it",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "topic", Aliases: []string{"t"}, Usage: "Topic to generate", Required: true},
			&cli.BoolFlag{Name: "refresh", Usage: "Generate again even if a roadmap exists"},
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			env, err := internal.Open([]internal.Option{internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr)})
			if err != nil {
				return err
			}
			defer env.Close()

			d, _, err := env.Service.Generate(ctx, cmd.String("topic"), cmd.Bool("refresh"))
			if err != nil {
				return err
			}
			if cmd.String("format") == formatJSON {
				return render.JSON(os.Stdout, d)
			}
			return printTree(os.Stdout, cmd.String("format"), d.Tree)
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List stored roadmaps",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum roadmaps to show", Value: 50},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			env, err := internal.Open([]internal.Option{internal.WithConfig(cfg), internal.WithLogOutput(io.Discard)})
			if err != nil {
				return err
			}
			defer env.Close()

			items, total, err := env.Service.List(ctx, int(cmd.Int("limit")), 0)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTOPIC\tSOURCE\tNODES\tUPDATED")
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", it.ID, it.Topic, it.Source, it.NodeCount, humanize.Time(it.UpdatedAt))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if total > len(items) {
				fmt.Fprintf(os.Stdout, "%d of %s roadmaps shown\n", len(items), humanize.Comma(int64(total)))
			}
			return nil
		},
	}
}

func printTree(w io.Writer, format string, tree *parser.Tree) error {
	switch format {
	case formatJSON:
		return render.JSON(w, struct {
			Tree  *parser.Tree `json:"tree"`
			Stats parser.Stats `json:"stats"`
		}{tree, tree.Stats()})
	case formatOutline:
		_, err := io.WriteString(w, parser.Format(tree))
		return err
	case formatTree, "":
		_, err := fmt.Fprintln(w, render.Tree(tree))
		return err
	}
	return fmt.Errorf("unknown format %q", format)
}
