package main

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/eth2030/blake2f/blake2f"
	"github.com/eth2030/blake2f/precompile"
)

var errNoInput = errors.New("no input given")

func newCompressCommand() *cli.Command {
	return &cli.Command{
		Name:      "compress",
		Usage:     "synthesize one compression and print its digest",
		ArgsUsage: "<hex input>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "input",
				Usage:   "213-byte EIP-152 input, hex encoded",
				EnvVars: []string{"BLAKE2F_INPUT"},
			},
			newVerifyFlag(),
		},
		Action: func(c *cli.Context) error {
			raw := c.Args().First()
			if raw == "" {
				raw = c.String("input")
			}
			if raw == "" {
				return errNoInput
			}
			in, err := parseHexInput(raw)
			if err != nil {
				return err
			}
			s, err := blake2f.Synthesize(in, synthOptions(c)...)
			if err != nil {
				return err
			}
			if c.Bool(verifyFlagName) {
				if err := s.Verify(); err != nil {
					return err
				}
			}
			words, _ := s.Words()
			fmt.Fprintln(c.App.Writer, hex.EncodeToString(precompile.EncodeDigest(words)))
			return nil
		},
	}
}

func newBatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "batch",
		Usage:     "synthesize one compression per input line",
		ArgsUsage: "<file|->",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "parallel",
				Usage:   "instances synthesized at once (0 = GOMAXPROCS)",
				EnvVars: []string{"BLAKE2F_PARALLEL"},
			},
			newVerifyFlag(),
		},
		Action: func(c *cli.Context) error {
			r, closeFn, err := openInput(c.Args().First())
			if err != nil {
				return err
			}
			defer closeFn()
			inputs, err := readInputs(r)
			if err != nil {
				return err
			}
			syntheses, err := blake2f.SynthesizeBatch(c.Context, inputs, c.Int("parallel"), synthOptions(c)...)
			if err != nil {
				return err
			}
			for i, s := range syntheses {
				if c.Bool(verifyFlagName) {
					if err := s.Verify(); err != nil {
						return fmt.Errorf("input %d: %w", i, err)
					}
				}
				words, _ := s.Words()
				fmt.Fprintln(c.App.Writer, hex.EncodeToString(precompile.EncodeDigest(words)))
			}
			return nil
		},
	}
}

func newShapeCommand() *cli.Command {
	return &cli.Command{
		Name:  "shape",
		Usage: "print the constraint system and trace layout",
		Action: func(c *cli.Context) error {
			s, err := blake2f.SynthesizeShape(synthOptions(c)...)
			if err != nil {
				return err
			}
			w := c.App.Writer
			fmt.Fprintf(w, "rows         %d (min %d)\n", s.Trace.Rows(), blake2f.MinRows)
			fmt.Fprintf(w, "advice       %d\n", s.CS.NumAdvice())
			fmt.Fprintf(w, "fixed        %d\n", s.CS.NumFixed())
			fmt.Fprintf(w, "selectors    %d\n", s.CS.NumSelectors())
			fmt.Fprintf(w, "gates        %d\n", len(s.CS.Gates()))
			fmt.Fprintf(w, "constraints  %d\n", s.CS.NumConstraints())
			fmt.Fprintf(w, "lookups      %d\n", len(s.CS.Lookups()))
			fmt.Fprintf(w, "copies       %d\n", s.Trace.NumCopies())
			for _, g := range s.CS.Gates() {
				fmt.Fprintf(w, "  gate %-16s %d constraints\n", g.Name, len(g.Constraints))
			}
			return nil
		},
	}
}

func parseHexInput(s string) (blake2f.Input, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return blake2f.Input{}, fmt.Errorf("decode input: %w", err)
	}
	return precompile.ParseInput(raw)
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

// readInputs reads one hex input per line, skipping blank lines and lines
// starting with '#'.
func readInputs(r io.Reader) ([]blake2f.Input, error) {
	var inputs []blake2f.Input
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 4096), 1<<20)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		in, err := parseHexInput(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		inputs = append(inputs, in)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, errNoInput
	}
	return inputs, nil
}
