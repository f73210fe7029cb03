// Command asn1conv converts ASN.1 values between encoding rules and checks
// the codecs with random round trips.
//
// Usage:
//
//	asn1conv [-config file] [-v] convert -schema types.toml -type T -from ber -to xer [-hex] [-in file] [-out file]
//	asn1conv [-config file] [-v] fuzz -schema types.toml -type T [-rules ber,per] [-n 1000] [-seed 1] [-workers 8]
//	asn1conv rules
//
// Types are loaded from TOML descriptor tables. Binary input and output can be
// hex encoded with -hex.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"codello.dev/asn1rt"
	"codello.dev/asn1rt/internal/codec"
	"codello.dev/asn1rt/internal/logging"
	"codello.dev/asn1rt/schema"
)

const app = "asn1conv"

var errUsage = errors.New("usage: asn1conv [-config file] [-v] convert|fuzz|rules [flags]")

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", app, err)
		os.Exit(1)
	}
}

// env is the environment of a subcommand.
type env struct {
	cfg    config
	log    zerolog.Logger
	stdin  io.Reader
	stdout io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet(app, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "TOML file with flag defaults")
	verbose := fs.Bool("v", false, "log debug messages")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	e := &env{cfg: defaultConfig(), stdin: stdin, stdout: stdout}
	e.log = logging.New(app, stderr, *verbose)
	if *configPath != "" {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			return err
		}
		e.cfg = cfg
		e.log.Debug().Str("path", *configPath).Msg("loaded config")
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "convert":
		return e.convert(rest, stderr)
	case "fuzz":
		return e.fuzz(rest, stderr)
	case "rules":
		for _, name := range codec.Names() {
			fmt.Fprintln(stdout, name)
		}
		return nil
	}
	return fmt.Errorf("unknown command %q\n%w", cmd, errUsage)
}

// loadType returns the type name of the schema at path. If name is empty the
// root type of the schema is used.
func loadType(path, name string) (*asn1rt.Descriptor, error) {
	if path == "" {
		return nil, errors.New("no schema file given")
	}
	s, err := schema.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return s.RootType()
	}
	d, ok := s.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("type %q not defined in %s", name, path)
	}
	return d, nil
}

func lookupRule(name string) (codec.Rule, error) {
	r, ok := codec.Lookup(strings.ToLower(name))
	if !ok {
		return codec.Rule{}, fmt.Errorf("unknown encoding rules %q (known: %s)", name, strings.Join(codec.Names(), ", "))
	}
	return r, nil
}
