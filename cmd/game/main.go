package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/term"

	"github.com/tomz197/patchtyper/internal/audio"
	"github.com/tomz197/patchtyper/internal/catalog"
	"github.com/tomz197/patchtyper/internal/client"
	"github.com/tomz197/patchtyper/internal/config"
	"github.com/tomz197/patchtyper/internal/hub"
)

func main() {
	configPath := flag.String("config", config.ConfigPath(), "game balance file (yaml, toml or json)")
	catalogPath := flag.String("catalog", config.CatalogPath(), "threat catalog file")
	logPath := flag.String("log", "", "write logs to this file")
	debug := flag.Bool("debug", false, "log at debug level")
	mute := flag.Bool("mute", false, "start with sound off")
	threats := flag.Bool("threats", false, "list the threat catalog and exit")
	flag.Parse()

	if *threats {
		if err := printThreats(os.Stdout, *catalogPath); err != nil {
			fmt.Fprintf(os.Stderr, "game error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*configPath, *catalogPath, *logPath, *debug, *mute); err != nil {
		fmt.Fprintf(os.Stderr, "game error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, catalogPath, logPath string, debug, mute bool) error {
	// The terminal belongs to the game, so logs go to a file or nowhere
	var logOut io.Writer = io.Discard
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := log.NewWithOptions(logOut, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "patchtyper",
	})
	if debug {
		logger.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		return err
	}
	logger.Info("catalog loaded", "threats", cat.Len())

	var player audio.Player = &audio.Silent{}
	if cfg.Audio.Enabled {
		m := audio.NewManager(cfg.Audio)
		if err := m.Initialize(); err != nil {
			logger.Warn("audio unavailable", "err", err)
		} else {
			defer m.Cleanup()
			player = m
		}
	}
	if mute {
		player.ToggleMute()
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to enable raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
	}()

	lobby := hub.New(cfg, cat, logger)
	c, err := client.NewClient(lobby, bufio.NewReader(os.Stdin), os.Stdout, client.ClientOptions{
		Username:  config.GetEnv("USER", "player"),
		Audio:     player,
		UI:        cfg.UI,
		Logger:    logger,
		KeepAlive: true,
	})
	if err != nil {
		return err
	}
	return c.Run()
}

// printThreats writes the catalog at path as a table, in catalog order.
func printThreats(w io.Writer, path string) error {
	cat, err := catalog.Load(path)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSEVERITY\tDAMAGE\tPOINTS\tLEVEL\tFIX")
	for _, t := range cat.Templates() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n", t.ID, t.Name, t.Severity, t.BaseDamage, t.BasePoints, t.MinLevel, t.Fix)
	}
	return tw.Flush()
}
