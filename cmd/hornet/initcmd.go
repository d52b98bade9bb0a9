package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hornet-api/hornet/pkg/collection"
	"github.com/hornet-api/hornet/pkg/config"
	"github.com/hornet-api/hornet/pkg/runner"
	"github.com/hornet-api/hornet/pkg/syncer"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Create a new collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		dir := filepath.Join(cfg.CollectionsDir, args[0])
		engine, err := syncer.Create(dir, collection.Info{Name: args[0]})
		if err != nil {
			return err
		}
		defer engine.Close()

		// Seed a default environment so {{VAR}} substitution works out
		// of the box.
		envPath := filepath.Join(dir, collection.EnvironmentsDirName, cfg.DefaultEnvironment+".yaml")
		if _, statErr := os.Stat(envPath); os.IsNotExist(statErr) {
			if err := runner.SaveVars(runner.Vars{}, envPath); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not create %s: %v\n", envPath, err)
			}
		}

		fmt.Printf("Created collection %q at %s\n", args[0], dir)
		return nil
	},
}
