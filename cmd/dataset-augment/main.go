package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/dataset-augment/internal/config"
	"github.com/ironsheep/dataset-augment/internal/metadata"
	"github.com/ironsheep/dataset-augment/internal/pipeline"
	"github.com/ironsheep/dataset-augment/internal/server"
	"k8s.io/klog/v2"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("dataset-augment - synthetic background augmentation for labeled image datasets")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  dataset-augment prepare   -data DIR -config FILE -result DIR [-tools DIR] [-progress]")
	fmt.Println("  dataset-augment aggregate -data DIR -config FILE -result DIR [-tools DIR] [-rows FILE]")
	fmt.Println("  dataset-augment serve")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables (also read from ./.env):")
	fmt.Println("  AUGMENT_LOG_LEVEL=debug    Enable debug logging")
	fmt.Println("  AUGMENT_WORKERS=N          Override the compositing pool width")
	fmt.Println("  AUGMENT_SEED=N             Override the random seed")
	fmt.Println()
	fmt.Println("serve hosts the stages as MCP tools over stdin/stdout.")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "--version", "-v", "version":
		fmt.Printf("dataset-augment %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	case "--help", "-h", "help":
		usage()
		return
	}

	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "dataset-augment: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "prepare", "aggregate":
		err = runStage(ctx, cmd, args)
	case "serve":
		err = runServe(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "dataset-augment: unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
	klog.Flush()
	if err != nil {
		stop()
		klog.Exitf("%s failed: %v", cmd, err)
	}
}

// newFlagSet returns a flag set with the logging flags registered, and applies
// AUGMENT_LOG_LEVEL once parsed.
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	klog.InitFlags(fs)
	// Logs go to stderr; stdout is reserved for the MCP protocol
	_ = fs.Set("logtostderr", "true")
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) {
	_ = fs.Parse(args)
	if config.LogLevel() == "debug" && fs.Lookup("v").Value.String() == "0" {
		_ = fs.Set("v", "2")
	}
}

func runStage(ctx context.Context, cmd string, args []string) error {
	fs := newFlagSet(cmd)
	var in config.StageInput
	fs.StringVar(&in.DataDir, "data", "", "directory with source images, input table and schema")
	fs.StringVar(&in.ToolsDir, "tools", "", "directory with auxiliary tools (unused)")
	fs.StringVar(&in.ScriptConfig, "config", "", "JSON stage config")
	fs.StringVar(&in.ResultDir, "result", "", "output directory")
	progress := fs.Bool("progress", false, "show a progress bar on stderr (prepare)")
	rowsFile := fs.String("rows", "", "JSON file with an array of rows to write (aggregate)")
	parseFlags(fs, args)

	klog.V(1).Infof("dataset-augment %s (built %s, commit %s)", Version, BuildTime, GitCommit)

	var (
		res *pipeline.Result
		err error
	)
	if cmd == "prepare" {
		var opts pipeline.Options
		if *progress {
			opts.Progress = os.Stderr
		}
		res, err = pipeline.Prepare(ctx, in, opts)
	} else {
		var rows []metadata.Row
		if *rowsFile != "" {
			if rows, err = readRows(*rowsFile); err != nil {
				return err
			}
		}
		res, err = pipeline.Aggregate(ctx, in, rows)
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d rows\n  table:  %s\n  schema: %s\n", cmd, res.Rows, res.TablePath, res.SchemaPath)
	return nil
}

func readRows(path string) ([]metadata.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	var rows []metadata.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse rows %q: %w", path, err)
	}
	return rows, nil
}

func runServe(ctx context.Context, args []string) error {
	fs := newFlagSet("serve")
	parseFlags(fs, args)

	klog.V(1).Infof("Dataset MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	server.Version = Version
	return server.NewWithContext(ctx).Run()
}
