package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"

	"rdlc/internal/checkpoint"
	"rdlc/internal/client"
	"rdlc/internal/config"
	"rdlc/internal/reader"
	"rdlc/internal/redo"
	"rdlc/internal/watch"
	"rdlc/pkg"
)

func main() {
	version := flag.Bool("v", false, "Prints current tool version")

	configPath := flag.String("config", "", "path to the YAML configuration file")
	database := flag.String("database", "", "logical database name (checkpoint file stem)")

	remote := flag.Bool("remote", false, "remote connect or not")
	host := flag.String("host", "", "database host")
	port := flag.String("port", "", "database port")
	username := flag.String("username", "", "database user name")
	password := flag.String("password", "", "database user password")
	sid := flag.String("sid", "", "database sid")

	level := flag.String("log-level", "", "logrus level (debug, info, warn, error)")

	flag.Parse()

	if *version {
		fmt.Println(fmt.Sprintf("RDLC - Redo Log Collector v%s", pkg.AppVersion))
		os.Exit(0)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			pterm.Error.Printfln("reading configuration: %v", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	connector := &pkg.Connector{
		Host:     *host,
		Port:     *port,
		Username: *username,
		Password: *password,
		Sid:      *sid,
	}
	overlay(cfg, connector, *database, *remote, *level)

	if cfg.Database == "" || cfg.Sid == "" {
		pterm.Error.Println("a database name and sid are required (flags or config file)")
		os.Exit(1)
	}

	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)

	pterm.Info.Printfln("RDLC v%s - redo log collector for %s", pkg.AppVersion, cfg.Database)

	if err := os.MkdirAll(cfg.CheckpointDir, 0755); err != nil {
		pterm.Error.Printfln("creating checkpoint directory: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := client.New(client.Config{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Username:       cfg.Username,
		Password:       cfg.Password,
		Sid:            cfg.Sid,
		Remote:         cfg.Remote,
		ConnectTimeout: cfg.ConnectTimeoutDuration(),
	})
	defer cli.Close()

	var nudge <-chan struct{}
	if cfg.ArchiveDest != "" {
		w, err := watch.New(cfg.ArchiveDest)
		if err != nil {
			logrus.Warnf("archive destination not watchable, falling back to polling: %v", err)
		} else {
			defer w.Close()
			nudge = w.C
		}
	}

	rdr := reader.New(reader.Options{
		Database:      cfg.Database,
		Dict:          cli,
		Txns:          reader.NoTransactions{},
		Checkpoint:    checkpoint.New(cfg.CheckpointDir, cfg.Database, cfg.CheckpointEvery()),
		Nudge:         nudge,
		RedoReadSleep: cfg.RedoSleep(),
	})

	if err := cli.Ensure(ctx, true); err != nil {
		pterm.Error.Printfln("connecting: %v", err)
		os.Exit(1)
	}

	if err := rdr.Bootstrap(ctx); err != nil {
		if errors.Is(err, reader.ErrConfigReject) {
			pterm.Error.Printfln("%v", err)
		} else {
			logrus.Errorf("bootstrap: %v", err)
		}
		os.Exit(1)
	}

	for _, t := range cfg.Tables {
		owner := strings.SplitN(t.Mask, ".", 2)[0]
		if !pkg.FilterValue(owner, pkg.OracleSystemSchemas) {
			logrus.Warnf("skipping system schema mask: %s", t.Mask)
			continue
		}
		if err := rdr.Catalog().AddTablesMatching(ctx, cli, t.Mask, t.Options); err != nil {
			logrus.Warnf("continuing with a partial catalog for %s", t.Mask)
		}
	}

	rdr.SetLogReader(redo.NewBlockReader(ctx, rdr.Codec(), cfg.RedoSleep(), rdr))

	if err := rdr.Run(ctx); err != nil {
		logrus.Errorf("reader stopped: %v", err)
		os.Exit(1)
	}
}

// overlay applies command-line values over the loaded configuration.
func overlay(cfg *config.Config, conn *pkg.Connector, database string, remote bool, level string) {
	if database != "" {
		cfg.Database = database
	}
	if conn.Host != "" {
		cfg.Host = conn.Host
	}
	if conn.Port != "" {
		cfg.Port = conn.Port
	}
	if conn.Username != "" {
		cfg.Username = conn.Username
	}
	if conn.Password != "" {
		cfg.Password = conn.Password
	}
	if conn.Sid != "" {
		cfg.Sid = conn.Sid
	}
	if remote {
		cfg.Remote = true
	}
	if level != "" {
		cfg.LogLevel = level
	}
}
