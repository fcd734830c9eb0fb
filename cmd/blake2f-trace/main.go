// Command blake2f-trace synthesizes and checks BLAKE2F compression traces
// for EIP-152 encoded inputs.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/eth2030/blake2f/blake2f"
	"github.com/eth2030/blake2f/log"
)

var (
	version = "v0.1.0"
	commit  = "unknown"
)

// Flag names. The flags themselves are built per app: urfave/cli writes
// resolved environment values back into the flag struct.
const (
	rowsFlagName     = "rows"
	logLevelFlagName = "log.level"
	verifyFlagName   = "verify"
)

func newRowsFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    rowsFlagName,
		Usage:   "trace height",
		Value:   blake2f.DefaultRows,
		EnvVars: []string{"BLAKE2F_ROWS"},
	}
}

func newLogLevelFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    logLevelFlagName,
		Usage:   "log level: debug, info, warn, error",
		Value:   "info",
		EnvVars: []string{"BLAKE2F_LOG_LEVEL"},
	}
}

func newVerifyFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  verifyFlagName,
		Usage: "check the trace against its constraints",
		Value: true,
	}
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)
	if err := app.Run(args); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "blake2f-trace",
		Usage:     "synthesize and check BLAKE2F compression traces",
		Version:   fmt.Sprintf("%s (commit %s)", version, commit),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     []cli.Flag{newRowsFlag(), newLogLevelFlag()},
		Before: func(c *cli.Context) error {
			lvl, err := log.ParseLevel(c.String(logLevelFlagName))
			if err != nil {
				return err
			}
			log.SetDefault(log.NewText(stderr, lvl))
			return nil
		},
		Commands: []*cli.Command{
			newCompressCommand(),
			newBatchCommand(),
			newShapeCommand(),
			newServeCommand(),
		},
	}
}

func synthOptions(c *cli.Context) []blake2f.Option {
	return []blake2f.Option{
		blake2f.WithRows(c.Int(rowsFlagName)),
		blake2f.WithLogger(log.Default()),
	}
}
