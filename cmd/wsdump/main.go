// Wsdump is a command-line WebSocket client: it connects to a server,
// relays its standard input as WebSocket messages, and dumps incoming
// messages to its standard output.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"

	"github.com/tzrikka/wscodec/pkg/websocket"
	"github.com/tzrikka/xdg"
)

const (
	ConfigDirName  = "wsdump"
	ConfigFileName = "config.toml"
)

func main() {
	bi, _ := debug.ReadBuildInfo()

	cmd := &cli.Command{
		Name:      "wsdump",
		Usage:     "Relay stdin/stdout through a WebSocket connection",
		ArgsUsage: "ws[s]://host[:port][/path]",
		Version:   bi.Main.Version,
		Flags:     flags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return errors.New("expected exactly one WebSocket URL argument")
			}

			initLog(cmd.Bool("pretty-log"))
			return run(ctx, cmd)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func flags() []cli.Flag {
	path := configFile()
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "pretty-log",
			Usage: "human-readable console logging, instead of JSON",
		},
		&cli.BoolFlag{
			Name:  "binary",
			Usage: "send stdin as binary messages, instead of text",
		},
		&cli.DurationFlag{
			Name:  "eof-wait",
			Usage: "how long to wait for late messages after stdin is exhausted",
			Value: time.Second,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("WSDUMP_EOF_WAIT"),
				toml.TOML("wsdump.eof_wait", path),
			),
		},
		&cli.StringSliceFlag{
			Name:  "header",
			Usage: `extra HTTP handshake header ("Name: value"), repeatable`,
		},
	}
}

// configFile returns the path to the app's configuration file.
// It also creates an empty file if it doesn't already exist.
func configFile() altsrc.StringSourcer {
	path, err := xdg.CreateFile(xdg.ConfigHome, ConfigDirName, ConfigFileName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create config file")
	}
	return altsrc.StringSourcer(path)
}

// initLog initializes the process-wide logger, based on
// whether human-readable output was requested or not.
func initLog(pretty bool) {
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

func run(ctx context.Context, cmd *cli.Command) error {
	b, err := websocket.NewClientBuilder(cmd.Args().First())
	if err != nil {
		return err
	}

	for _, h := range cmd.StringSlice("header") {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return fmt.Errorf("malformed header flag: %q", h)
		}
		b.AddHeader(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	conn, err := b.Connect(log.Logger.WithContext(ctx))
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range conn.IncomingMessages() {
			_, _ = os.Stdout.Write(msg.Data)
			if msg.Opcode == websocket.OpcodeText {
				fmt.Println()
			}
		}
	}()

	if err := relayStdin(conn, cmd.Bool("binary")); err != nil {
		return err
	}

	// Give the server a moment to finish talking, then close down.
	select {
	case <-done:
	case <-time.After(cmd.Duration("eof-wait")):
	}

	conn.Close(websocket.StatusNormalClosure)

	select {
	case <-done:
	case <-time.After(cmd.Duration("eof-wait")):
		log.Warn().Msg("server didn't complete the closing handshake")
	}

	return nil
}

// relayStdin sends each line of standard input as one WebSocket message,
// until EOF.
func relayStdin(conn *websocket.Conn, binary bool) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		var err error
		if binary {
			err = <-conn.SendBinaryMessage(scanner.Bytes())
		} else {
			err = <-conn.SendTextMessage(scanner.Bytes())
		}
		if err != nil {
			return fmt.Errorf("failed to send WebSocket message: %w", err)
		}
	}

	return scanner.Err()
}
