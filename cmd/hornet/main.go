package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hornet-api/hornet/pkg/collection"
	"github.com/hornet-api/hornet/pkg/config"
	"github.com/hornet-api/hornet/pkg/history"
	"github.com/hornet-api/hornet/pkg/runner"
	"github.com/hornet-api/hornet/pkg/syncer"
	"github.com/hornet-api/hornet/pkg/tui"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	cfgFile        string
	collectionName string
	requestPath    string
	envName        string

	rootCmd = &cobra.Command{
		Use:   "hornet",
		Short: "hornet - offline API testing in your terminal",
		Long: `hornet is a keyboard-driven API client that lives in your terminal.
Collections are plain directories of YAML files, edited in a three-pane
TUI and saved lazily: only what you changed is ever written back.`,
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load .env if present (optional, warn if malformed)
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
			}

			if err := config.Initialize(); err != nil {
				return err
			}
			// Re-read config after initialization (first run creates
			// config.json after viper's initial read)
			_ = viper.ReadInConfig()

			engine, err := openCollection(collectionName)
			if err != nil {
				return err
			}

			exec, err := newRunner(engine.Dir(), envName)
			if err != nil {
				return err
			}

			// Headless mode: execute one saved request and print it
			if requestPath != "" {
				defer engine.Close()
				return runHeadless(engine, exec, requestPath)
			}

			// Interactive mode: history log is best-effort
			var histLog *history.Log
			if path, err := config.HistoryPath(); err == nil {
				if l, err := history.Open(cmd.Context(), path); err == nil {
					histLog = l
					defer histLog.Close()
				} else {
					fmt.Fprintf(os.Stderr, "Warning: history disabled: %v\n", err)
				}
			}

			return tui.Run(engine, exec, histLog)
		},
	}
)

func init() {
	cobra.OnInitialize(func() { config.SetupViper(cfgFile) })
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.config/hornet/config.json)")
	rootCmd.PersistentFlags().StringVarP(&collectionName, "collection", "c", "", "collection name or directory")

	rootCmd.Flags().StringVarP(&requestPath, "request", "r", "", "execute one saved request by path (e.g. Auth/Login) and exit")
	rootCmd.Flags().StringVarP(&envName, "env", "e", "", "environment for variable substitution")
}

// openCollection resolves a name or path to a collection directory and
// opens it, creating a new collection when the directory is empty.
func openCollection(name string) (*syncer.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	dir := name
	switch {
	case name == "":
		dir = filepath.Join(cfg.CollectionsDir, "default")
	case !strings.ContainsRune(name, os.PathSeparator):
		dir = filepath.Join(cfg.CollectionsDir, name)
	}

	engine, err := syncer.Open(dir)
	if err == nil {
		return engine, nil
	}
	if _, statErr := os.Stat(dir); os.IsNotExist(statErr) {
		info := collection.Info{Name: filepath.Base(dir)}
		return syncer.Create(dir, info)
	}
	return nil, err
}

// newRunner builds the executor with the chosen environment loaded
// from the collection's environments/ directory.
func newRunner(collectionDir, env string) (*runner.Runner, error) {
	if env == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		env = cfg.DefaultEnvironment
	}

	path := filepath.Join(collectionDir, collection.EnvironmentsDirName, env+".yaml")
	vars, err := runner.LoadVars(path)
	if os.IsNotExist(err) {
		return runner.New(nil), nil
	}
	if err != nil {
		return nil, err
	}
	return runner.New(vars), nil
}

// runHeadless executes one request by its slash-joined path and prints
// a glamour-rendered summary.
func runHeadless(engine *syncer.Engine, exec *runner.Runner, path string) error {
	st := engine.Store()
	node, err := findByPath(st.Root(), path)
	if err != nil {
		return err
	}
	if node.Kind() != collection.KindRequest {
		return fmt.Errorf("%s is a folder; use the TUI to run folders, or name a request", path)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	resp, err := exec.Execute(ctx, node.Request())
	if err != nil {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", path)
	fmt.Fprintf(&sb, "**%s** in %dms, %d bytes\n\n", resp.Status, resp.Duration.Milliseconds(), resp.Size)
	sb.WriteString("```json\n")
	sb.WriteString(runner.PrettyJSON(resp.Body))
	sb.WriteString("\n```\n")

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Println(sb.String()) // fallback to raw output
		return nil
	}
	out, err := renderer.Render(sb.String())
	if err != nil {
		fmt.Println(sb.String())
		return nil
	}
	fmt.Print(out)
	return nil
}

// findByPath walks slash-separated names from a directory node.
func findByPath(dir *collection.Node, path string) (*collection.Node, error) {
	node := dir
	for _, name := range strings.Split(path, "/") {
		var next *collection.Node
		for _, c := range node.Children() {
			if c.Name() == name {
				next = c
				break
			}
		}
		if next == nil {
			return nil, fmt.Errorf("no request %q in collection", path)
		}
		node = next
	}
	return node, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
