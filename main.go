package main

import (
	"github.com/alecthomas/kong"
	_ "github.com/lib/pq"

	"github.com/samandartukhtayev/user-directory/config"
	"github.com/samandartukhtayev/user-directory/logging"
)

type cli struct {
	Config string `help:"JSON config file; *.enc.json files are decrypted with SOPS." type:"path" placeholder:"FILE"`

	Serve    serveCmd    `cmd:"" help:"Serve the user directory page."`
	Render   renderCmd   `cmd:"" help:"Mount the page once and write the resulting HTML."`
	Prefetch prefetchCmd `cmd:"" help:"Fetch the users once and save the outcome to the snapshot store."`
}

// app is what every command runs with
type app struct {
	cfg *config.Config
	log *logging.Logger
}

func main() {
	var args cli
	ctx := kong.Parse(&args,
		kong.Name("userdir"),
		kong.Description("A single page listing the users of a remote directory."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(args.Config)
	ctx.FatalIfErrorf(err)

	a := &app{cfg: cfg, log: logging.New("Userdir")}
	ctx.FatalIfErrorf(ctx.Run(a))
}
