package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/ChapterWatch/internal/adapter"
	"github.com/IshaanNene/ChapterWatch/internal/config"
)

var (
	initOutput string
	initForce  bool
)

// initCmd creates the "init" subcommand that writes a starter config.
func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively write a starter configuration file",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}

	cmd.Flags().StringVarP(&initOutput, "output", "o", "chapterwatch.yaml", "config file to write")
	cmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing file")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(initOutput); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", initOutput)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	cfg := config.DefaultConfig()

	sites := adapter.KnownSites()
	items := make([]string, len(sites))
	for i, s := range sites {
		p, _ := adapter.ProfileFor(s)
		items[i] = fmt.Sprintf("%s  (%s)", s, p.Description)
	}
	idx, _, err := (&promptui.Select{Label: "Site", Items: items}).Run()
	if err != nil {
		return fmt.Errorf("selection cancelled")
	}
	site := sites[idx]
	cfg.Site.Name = string(site)

	if cfg.Site.BookLinksFile, err = prompt("Book links file", cfg.Site.BookLinksFile, nonEmpty); err != nil {
		return err
	}

	// Ask for every required selector the site has no default for.
	prof, _ := adapter.ProfileFor(site)
	cfg.Site.Selectors = map[string]string{}
	for _, key := range prof.Required {
		if _, ok := prof.Selectors[key]; ok {
			continue
		}
		val, err := prompt("Selector "+key+" (prefix xpath: for XPath)", "", nonEmpty)
		if err != nil {
			return err
		}
		cfg.Site.Selectors[key] = val
	}

	_, storeKind, err := (&promptui.Select{Label: "Store records in", Items: []string{"none", "mongodb", "json"}}).Run()
	if err != nil {
		return fmt.Errorf("selection cancelled")
	}
	cfg.Storage.Type = storeKind

	switch storeKind {
	case "mongodb":
		fmt.Printf("The connection string is read from %s_STORAGE_URI or a .env file.\n", config.EnvPrefix)
		if cfg.Storage.Database, err = prompt("Database", cfg.Storage.Database, nonEmpty); err != nil {
			return err
		}
		if cfg.Storage.Collection, err = prompt("Collection", cfg.Storage.Collection, nonEmpty); err != nil {
			return err
		}
	case "json":
		if cfg.Storage.OutputPath, err = prompt("Output file", cfg.Storage.OutputPath, nonEmpty); err != nil {
			return err
		}
	}

	if err := config.SaveYAML(cfg, initOutput); err != nil {
		return err
	}
	fmt.Println("Wrote", initOutput)
	return nil
}

func prompt(label, def string, validate promptui.ValidateFunc) (string, error) {
	p := promptui.Prompt{
		Label:    label,
		Default:  def,
		Validate: validate,
	}
	val, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("input cancelled")
	}
	return val, nil
}

func nonEmpty(s string) error {
	if s == "" {
		return errors.New("value required")
	}
	return nil
}
