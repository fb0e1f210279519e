package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/ironsheep/colorgrade-mcp/internal/config"
	"github.com/ironsheep/colorgrade-mcp/internal/grade"
	"github.com/ironsheep/colorgrade-mcp/internal/imaging"
	"github.com/ironsheep/colorgrade-mcp/internal/publish"
	"github.com/ironsheep/colorgrade-mcp/internal/recipe"
	"github.com/ironsheep/colorgrade-mcp/internal/server"
	"github.com/ironsheep/colorgrade-mcp/internal/watch"
)

var (
	flagConfig   string
	flagLogLevel string
	flagRecipe   string
	flagIn       string
	flagOut      string
	flagFormat   string
	flagMaxDim   int
	flagCompare  bool
	flagPublish  bool
	version      = "dev" // Injected at build time via ldflags

	cfg *config.Config
)

// errInvalid marks a run that reported problems already; main only sets the
// exit status.
var errInvalid = errors.New("invalid recipe")

var rootCmd = &cobra.Command{
	Use:               "colorgrade",
	Short:             "Apply color-grade recipes to images",
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

var gradeCmd = &cobra.Command{
	Use:   "grade",
	Short: "Grade an image with a recipe",
	RunE:  runGrade,
}

var validateCmd = &cobra.Command{
	Use:   "validate RECIPE...",
	Short: "Check recipe files",
	Long:  "Check one or more recipe files. Fallback warnings are printed; structural errors make the command exit with status 1.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runValidate,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-render a preview whenever the recipe or source changes",
	RunE:  runWatch,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdin/stdout",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to TOML config file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warning or error (overrides config)")

	for _, cmd := range []*cobra.Command{gradeCmd, watchCmd} {
		cmd.Flags().StringVar(&flagRecipe, "recipe", "", "path to recipe file (.json, .yaml, .toml, .hcl)")
		cmd.Flags().StringVar(&flagIn, "in", "", "source image")
		cmd.Flags().StringVar(&flagOut, "out", "", "output image; the extension selects the format")
		cmd.Flags().IntVar(&flagMaxDim, "max-dimension", 0, "longest output side in pixels, 0 for full size")
		_ = cmd.MarkFlagRequired("recipe")
		_ = cmd.MarkFlagRequired("in")
		_ = cmd.MarkFlagRequired("out")
	}
	gradeCmd.Flags().StringVar(&flagFormat, "format", "", "output format, overriding the --out extension")
	gradeCmd.Flags().BoolVar(&flagCompare, "compare", false, "write source and graded images side by side")
	gradeCmd.Flags().BoolVar(&flagPublish, "publish", false, "also publish the result to the configured directory or bucket")

	rootCmd.AddCommand(gradeCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads configuration and configures logging. Logs go to stderr;
// stdout belongs to command output and the MCP protocol.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	commonlog.Configure(cfg.Verbosity(), nil)
	server.Version = version
	return nil
}

func runGrade(cmd *cobra.Command, args []string) error {
	name := flagFormat
	if name == "" {
		name = filepath.Ext(flagOut)
	}
	if name == "" {
		return fmt.Errorf("cannot infer output format from %q; use --format", flagOut)
	}
	format, err := grade.ParseFormat(name)
	if err != nil {
		return err
	}

	var store publish.Store
	if flagPublish {
		if store, err = publish.New(cfg.Publish.Dir, cfg.Publish.S3); err != nil {
			return err
		}
	}

	r, warnings, err := recipe.Load(flagRecipe)
	printWarnings(cmd, flagRecipe, warnings)
	if err != nil {
		return err
	}

	src, err := imaging.NewImageCache().Load(flagIn)
	if err != nil {
		return err
	}
	src = imaging.Fit(src, flagMaxDim)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	plan := grade.Compile(r)
	graded, err := grade.ApplyImage(ctx, src, plan)
	if err != nil {
		return err
	}

	change, err := imaging.Compare(src, graded)
	if err != nil {
		return err
	}

	out := graded
	if flagCompare {
		out = imaging.SideBySide(src, graded)
	}
	data, err := imaging.EncodeBytes(out, format, cfg.JPEGQuality)
	if err != nil {
		return err
	}
	if err := publish.WriteFileAtomic(flagOut, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", flagOut, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Graded %s with %q into %s\n", flagIn, plan.Name(), flagOut)
	fmt.Fprintf(cmd.OutOrStdout(), "Changed %.1f%% of pixels, mean difference %.2f\n",
		change.ChangedFraction*100, change.AverageColorDiff)

	if store != nil {
		location, err := store.Put(ctx, publish.Key(plan.Name(), data, grade.Extension(format)), data, grade.MIMEType(format))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Published %s\n", location)
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	invalid := false
	for _, path := range args {
		_, warnings, err := recipe.Load(path)
		printWarnings(cmd, path, warnings)

		var verr *recipe.ValidationError
		switch {
		case errors.As(err, &verr):
			for _, e := range verr.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: error: %s %s\n", path, e.Field, e.Message)
			}
			invalid = true
		case err != nil:
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: error: %v\n", path, err)
			invalid = true
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
		}
	}

	if invalid {
		return errInvalid
	}
	return nil
}

func printWarnings(cmd *cobra.Command, path string, warnings []recipe.Warning) {
	for _, w := range warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: warning: %s\n", path, w)
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	maxDim := flagMaxDim
	if !cmd.Flags().Changed("max-dimension") {
		maxDim = cfg.MaxPreview
	}

	w := &watch.Watcher{
		RecipePath:   flagRecipe,
		SourcePath:   flagIn,
		OutputPath:   flagOut,
		MaxDimension: maxDim,
		Quality:      cfg.JPEGQuality,
		OnRender: func(res watch.Result) {
			printWarnings(cmd, flagRecipe, res.Warnings)
		},
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return w.Run(ctx)
}

func runServe(cmd *cobra.Command, args []string) error {
	srv, err := server.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
