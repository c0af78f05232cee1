package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ormasoftchile/acton/pkg/host"
	"github.com/ormasoftchile/acton/pkg/interp"
	"github.com/ormasoftchile/acton/pkg/script"
	"github.com/ormasoftchile/acton/pkg/value"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	loadDotEnv() // load .env file if present (gitignored)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadDotEnv reads a .env file from the working directory and sets
// any variables that aren't already set in the environment.
// Lines are KEY=VALUE (or KEY="VALUE"). Comments (#) and blanks are skipped.
func loadDotEnv() {
	f, err := os.Open(".env")
	if err != nil {
		return // no .env file, that's fine
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

var rootCmd = &cobra.Command{
	Use:   "acton",
	Short: "Automation script engine",
	Long:  "acton loads, validates and executes JSON automation scripts against a host environment.",
}

// --- validate ---

var validateCmd = &cobra.Command{
	Use:   "validate [script.json]",
	Short: "Validate a script document against the schema and static rules",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	prog, err := script.LoadFile(args[0])
	if err != nil {
		reportLoadError(err)
		return fmt.Errorf("validation failed")
	}
	fmt.Printf("✓ %s is valid (%d functions)\n", args[0], len(prog.Functions()))
	return nil
}

func reportLoadError(err error) {
	le, ok := err.(*script.LoadError)
	if !ok {
		fmt.Fprintf(os.Stderr, "  %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "Validation failed: %d error(s)\n\n", len(le.Errors))
	for i, e := range le.Errors {
		fmt.Fprintf(os.Stderr, "  %d. [%s] %s\n", i+1, e.Phase, e.Message)
		if e.Path != "" {
			fmt.Fprintf(os.Stderr, "     at: %s\n", e.Path)
		}
	}
}

// --- run ---

var (
	runHostFile  string
	runTraceFile string
	runMaxDepth  int
)

var runCmd = &cobra.Command{
	Use:   "run [script.json] [function] [arg...]",
	Short: "Execute a function from a script document",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	prog, err := script.LoadFile(args[0])
	if err != nil {
		reportLoadError(err)
		return fmt.Errorf("script validation failed")
	}

	fnName := args[1]
	fn, ok := prog.Lookup(fnName)
	if !ok {
		return fmt.Errorf("script declares no function %q (try: acton list %s)", fnName, args[0])
	}

	callArgs, err := parseCallArgs(fn, args[2:])
	if err != nil {
		return err
	}

	binding, cleanup, err := buildBinding()
	if err != nil {
		return err
	}
	defer cleanup()

	engine := interp.New(prog, binding, interp.WithMaxDepth(runMaxDepth))
	result, err := engine.Call(fnName, callArgs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %s failed: %v\n", fnName, err)
		return fmt.Errorf("execution failed")
	}
	if result.IsVoid() {
		fmt.Printf("✓ %s completed\n", fnName)
	} else {
		fmt.Printf("✓ %s → %s\n", fnName, result)
	}
	return nil
}

// buildBinding assembles the host environment: core, optionally layered
// with expr bindings and a trace decorator.
func buildBinding() (host.Binding, func(), error) {
	var binding host.Binding = host.NewCore(os.Stdout)
	cleanup := func() {}

	if runHostFile != "" {
		eb, err := host.LoadBindingsFile(runHostFile, binding)
		if err != nil {
			return nil, nil, fmt.Errorf("load host bindings: %w", err)
		}
		binding = eb
	}
	if runTraceFile != "" {
		tb, err := host.NewTraceBinding(binding, runTraceFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open trace: %w", err)
		}
		binding = tb
		cleanup = func() { tb.Close() }
	}
	return binding, cleanup, nil
}

// parseCallArgs converts CLI argument strings per the function's
// declared parameter types. Array and object arguments are JSON.
func parseCallArgs(fn *script.Function, raw []string) ([]value.Value, error) {
	if len(raw) != len(fn.Parameters) {
		return nil, fmt.Errorf("%s expects %d argument(s), got %d",
			fn.Signature(), len(fn.Parameters), len(raw))
	}
	args := make([]value.Value, len(raw))
	for i, p := range fn.Parameters {
		v, err := parseArg(p.Type, raw[i])
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", p.Name, err)
		}
		args[i] = v
	}
	return args, nil
}

func parseArg(t value.Type, raw string) (value.Value, error) {
	switch t {
	case value.String:
		return value.Str(raw), nil
	case value.Boolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return value.Value{}, fmt.Errorf("expected boolean, got %q", raw)
		}
		return value.Bool(b), nil
	case value.Integer:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return value.Value{}, fmt.Errorf("expected integer, got %q", raw)
		}
		return value.Int(n), nil
	case value.Double:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return value.Value{}, fmt.Errorf("expected double, got %q", raw)
		}
		return value.Float(f), nil
	case value.Array, value.Object:
		var x any
		if err := json.Unmarshal([]byte(raw), &x); err != nil {
			return value.Value{}, fmt.Errorf("expected JSON %s, got %q: %v", t, raw, err)
		}
		v := value.FromInterface(x)
		if v.Type() != t {
			return value.Value{}, fmt.Errorf("expected %s, got %s", t, v.Type())
		}
		return v, nil
	}
	return value.Value{}, fmt.Errorf("cannot parse argument of type %s", t)
}

// --- list ---

var listCmd = &cobra.Command{
	Use:   "list [script.json]",
	Short: "List the functions a script declares",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	prog, err := script.LoadFile(args[0])
	if err != nil {
		reportLoadError(err)
		return fmt.Errorf("script validation failed")
	}
	for _, fn := range prog.Functions() {
		fmt.Printf("  %s\n", fn.Signature())
		if fn.Description != "" {
			fmt.Printf("      %s\n", fn.Description)
		}
	}
	return nil
}

// --- schema ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the script document JSON Schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := script.GenerateJSONSchema()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

// --- watch ---

var watchCmd = &cobra.Command{
	Use:   "watch [script.json]",
	Short: "Revalidate a script whenever it changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	check := func() {
		if _, err := script.LoadFile(path); err != nil {
			reportLoadError(err)
		} else {
			fmt.Printf("✓ %s is valid\n", path)
		}
	}
	check()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				fmt.Printf("\nFile changed: %s\n", event.Name)
				check()
				// Editors that replace the file drop the watch; re-add.
				watcher.Add(path)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watcher error: %v\n", err)
		}
	}
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("acton %s (%s)\n", version, commit)
	},
}

func init() {
	runCmd.Flags().StringVar(&runHostFile, "host", "", "YAML host bindings file (expr programs)")
	runCmd.Flags().StringVar(&runTraceFile, "trace", "", "write host call trace to JSONL file")
	runCmd.Flags().IntVar(&runMaxDepth, "max-depth", interp.DefaultMaxDepth, "call depth ceiling")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}
