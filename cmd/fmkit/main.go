package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/fmkit/internal"
	pkgconfig "github.com/starford/fmkit/pkg/config"
)

// loadOptions reads the config file and returns the options shared by all
// commands. An explicitly chosen config file must exist.
func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	load := pkgconfig.LoadOptional[internal.Config]
	if cmd.IsSet("config") {
		load = pkgconfig.Load[internal.Config]
	}
	if err := load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return []internal.Option{
		internal.WithConfig(cfg),
	}, nil
}

func audit(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunAudit(ctx, internal.AuditRequest{
		Paths: cmd.Args().Slice(),
		Table: cmd.Bool("table"),
	}, opts...)
}

func updateRequest(cmd *cli.Command) internal.UpdateRequest {
	return internal.UpdateRequest{
		Paths:      cmd.Args().Slice(),
		OutDir:     cmd.String("outdir"),
		NoSlug:     cmd.Bool("no-slug"),
		NoAlias:    cmd.Bool("no-alias"),
		NoDefaults: cmd.Bool("no-defaults"),
	}
}

func update(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunUpdate(ctx, updateRequest(cmd), opts...)
}

func watch(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	req := updateRequest(cmd)
	req.Paths = nil
	return internal.RunWatch(ctx, internal.WatchRequest{
		Dir:    cmd.Args().First(),
		Update: req,
	}, opts...)
}

func updateFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "no-slug",
			Aliases: []string{"S"},
			Usage:   "Do not set the slug from the filename",
		},
		&cli.BoolFlag{
			Name:    "no-alias",
			Aliases: []string{"A"},
			Usage:   "Do not set the category/date alias",
		},
		&cli.BoolFlag{
			Name:    "no-defaults",
			Aliases: []string{"D"},
			Usage:   "Do not force the default fields",
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "fmkit",
		Usage: "Audit and normalize the front matter of Markdown posts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "fmkit.yaml",
				Value:       "fmkit.yaml",
				Sources:     cli.EnvVars("FMKIT_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "audit",
				Usage:     "Count header keys across documents",
				ArgsUsage: "[path...]",
				Action:    audit,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "table",
						Usage: "Render the report as a table",
					},
				},
			},
			{
				Name:      "update",
				Usage:     "Force default fields and derive slug and alias from filenames",
				ArgsUsage: "[path...]",
				Action:    update,
				Flags: append(updateFlags(),
					&cli.StringFlag{
						Name:    "outdir",
						Aliases: []string{"o"},
						Usage:   "Write changed documents here instead of in place",
					},
				),
			},
			{
				Name:      "watch",
				Usage:     "Update a directory and keep it updated as documents change",
				ArgsUsage: "[dir]",
				Action:    watch,
				Flags:     updateFlags(),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
