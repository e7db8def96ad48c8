package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"taskboard-go/internal/config"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type cli struct {
	Globals config.CLI       `embed:""`
	Version kong.VersionFlag `help:"Print version and exit."`

	Proxy    proxyCmd    `cmd:"" default:"1" help:"Run the development reverse proxy."`
	Login    loginCmd    `cmd:"" help:"Log in and persist the session."`
	Logout   logoutCmd   `cmd:"" help:"Clear the persisted session."`
	Register registerCmd `cmd:"" help:"Create a new account."`
	Whoami   whoamiCmd   `cmd:"" help:"Show the current session user."`
	Ping     pingCmd     `cmd:"" help:"Check the backend health endpoint."`
	List     listCmd     `cmd:"" help:"List a backend collection."`
	Get      getCmd      `cmd:"" help:"Show one backend record."`
	Create   createCmd   `cmd:"" help:"Create a backend record."`
	Update   updateCmd   `cmd:"" help:"Update a backend record."`
	Delete   deleteCmd   `cmd:"" help:"Delete a backend record."`
}

// output carries the writers commands print to.
type output struct {
	out io.Writer
	err io.Writer
}

func main() {
	var c cli
	ctx := kong.Parse(&c,
		kong.Name("taskboard"),
		kong.Description("Task board development proxy and session client."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
		kong.UsageOnError(),
	)

	err := ctx.Run(&c.Globals, &output{out: os.Stdout, err: os.Stderr})
	ctx.FatalIfErrorf(err)
}

// newLogger is the proxy's logger; it writes to stdout.
func newLogger(cfg *config.Config) *slog.Logger {
	return buildLogger(cfg, os.Stdout)
}

func buildLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "text":
		h = slog.NewTextHandler(w, opts)
	default:
		h = slog.NewJSONHandler(w, opts)
	}

	return slog.New(h)
}
