package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"strike-warden/internal/badwords"
	"strike-warden/internal/storage"
)

var (
	dictionaryDSN         string
	dictionaryDevelopment bool
)

var dictionaryCmd = &cobra.Command{
	Use:   "dictionary",
	Short: "Manage the stored bad-word dictionary",
}

var dictionarySeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write the built-in dictionary to storage so it can be edited",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := storage.Open(ctx, dictionaryDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		dict := badwords.Default(dictionaryDevelopment)
		if err := storage.SaveDataset(ctx, store, badwords.DatasetName, dict); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored %d tiers in %q\n", len(dict), badwords.DatasetName)
		return nil
	},
}

var dictionaryShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored dictionary",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := storage.Open(ctx, dictionaryDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		dict, err := storage.LoadDataset[badwords.Entry](ctx, store, badwords.DatasetName)
		if err != nil {
			return err
		}
		if _, err := badwords.Compile(dict, 0.25); err != nil {
			return fmt.Errorf("stored dictionary does not compile: %w", err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(dict)
	},
}

func init() {
	dictionaryCmd.PersistentFlags().StringVar(&dictionaryDSN, "dsn", "/data/warden.db", "sqlite path or postgres URL")
	dictionarySeedCmd.Flags().BoolVar(&dictionaryDevelopment, "development", false, "include the development-only test words")
	dictionaryCmd.AddCommand(dictionarySeedCmd, dictionaryShowCmd)
}
