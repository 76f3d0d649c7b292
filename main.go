package main

import (
	"os"
	"runtime"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/urfave/cli"

	"github.com/shiftd-io/shiftd/server"
)

func main() {
	app := cli.NewApp()
	app.Name = "shiftd"
	app.Usage = "Exclusive encrypt and decrypt channels over a fixed alphabet rotation"
	app.Version = server.Version
	app.Flags = getFlags()
	app.Action = func(c *cli.Context) error {
		config, err := server.NewConfig(c.String("config"))
		if err != nil {
			return err
		}
		if err := applyFlags(c, config); err != nil {
			return err
		}

		server := server.New(config)
		if err := server.Start(); err != nil {
			return err
		}
		runtime.Goexit()
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		panic(err)
	}
}

// applyFlags overrides file settings with flags that were set explicitly.
func applyFlags(c *cli.Context, config *server.Config) error {
	if c.IsSet("server-id") {
		config.ServerID = c.String("server-id")
	}
	if c.IsSet("namespace") {
		config.Namespace = c.String("namespace")
	}
	if c.IsSet("data-dir") {
		config.DataDir = c.String("data-dir")
	}
	if c.IsSet("host") {
		config.Host = c.String("host")
	}
	if c.IsSet("port") {
		config.Port = c.Int("port")
		if config.Listen.Host == "" {
			config.Listen.Port = config.Port
		}
	}
	if c.IsSet("shift") {
		config.Shift = c.Int("shift")
	}
	if c.IsSet("level") {
		level, err := server.GetLogLevel(c.String("level"))
		if err != nil {
			return err
		}
		config.LogLevel = level
	}
	if c.IsSet("nats-servers") {
		natsServers, err := normalizeNatsServers(c.StringSlice("nats-servers"))
		if err != nil {
			return err
		}
		config.NATS.Enabled = true
		config.NATS.Servers = natsServers
	}
	if c.Bool("embedded-nats") {
		config.NATS.Enabled = true
		config.NATS.Embedded = true
	}
	return nil
}

// normalizeNatsServers splits comma-separated server lists and trims
// whitespace so the flag can be repeated or given a list.
func normalizeNatsServers(natsServers []string) ([]string, error) {
	var servers []string
	for _, entry := range natsServers {
		for _, s := range strings.Split(entry, ",") {
			if s = strings.TrimSpace(s); s != "" {
				servers = append(servers, s)
			}
		}
	}
	return servers, nil
}

func getFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "load configuration from `FILE`",
		},
		cli.StringFlag{
			Name:  "server-id, id",
			Usage: "ID of the server if there is no stored ID",
		},
		cli.StringFlag{
			Name:  "namespace, ns",
			Usage: "NATS subject namespace",
			Value: server.DefaultNamespace,
		},
		cli.StringSliceFlag{
			Name:  "nats-servers, n",
			Usage: "serve the NATS API through the NATS servers at `ADDR`, e.g. " + nats.DefaultURL,
		},
		cli.BoolFlag{
			Name:  "embedded-nats, e",
			Usage: "run an embedded NATS server and serve the NATS API through it",
		},
		cli.StringFlag{
			Name:  "data-dir, d",
			Usage: "store the server ID in `DIR`",
		},
		cli.StringFlag{
			Name:  "host",
			Usage: "address to bind to",
		},
		cli.IntFlag{
			Name:  "port, p",
			Usage: "port to bind to",
			Value: server.DefaultPort,
		},
		cli.IntFlag{
			Name:  "shift, s",
			Usage: "rotation applied by the encrypt channel and reversed by the decrypt channel",
			Value: 3,
		},
		cli.StringFlag{
			Name:  "level, l",
			Usage: "logging level [debug|info|warn|error]",
			Value: "info",
		},
	}
}
