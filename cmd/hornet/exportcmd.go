package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hornet-api/hornet/pkg/config"
	"github.com/hornet-api/hornet/pkg/syncer"
)

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export a collection as a single YAML document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := openCollection(collectionName)
		if err != nil {
			return err
		}
		defer engine.Close()

		if err := engine.Export(args[0]); err != nil {
			return err
		}
		fmt.Printf("Exported %q to %s\n", engine.Store().Info().Name, args[0])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file> <name>",
	Short: "Import a single-document export as a new collection",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		dir := filepath.Join(cfg.CollectionsDir, args[1])
		engine, err := syncer.Import(dir, data)
		if err != nil {
			return err
		}
		defer engine.Close()

		fmt.Printf("Imported collection %q at %s\n", args[1], dir)
		return nil
	},
}
