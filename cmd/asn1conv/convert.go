package main

import (
	"bytes"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
)

func (e *env) convert(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(stderr)
	schemaPath := fs.String("schema", e.cfg.Schema, "TOML descriptor table")
	typeName := fs.String("type", e.cfg.Type, "type of the value, defaults to the schema root")
	from := fs.String("from", e.cfg.From, "encoding rules of the input")
	to := fs.String("to", e.cfg.To, "encoding rules of the output")
	useHex := fs.Bool("hex", e.cfg.Hex, "hex encode binary input and output")
	in := fs.String("in", "", "input file, defaults to standard input")
	out := fs.String("out", "", "output file, defaults to standard output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := loadType(*schemaPath, *typeName)
	if err != nil {
		return err
	}
	src, err := lookupRule(*from)
	if err != nil {
		return err
	}
	dst, err := lookupRule(*to)
	if err != nil {
		return err
	}

	data, err := e.readInput(*in)
	if err != nil {
		return err
	}
	if *useHex && !src.Text {
		if data, err = hex.DecodeString(string(bytes.Join(bytes.Fields(data), nil))); err != nil {
			return fmt.Errorf("decode hex input: %w", err)
		}
	}

	v, n, err := src.Decode(d, data, nil)
	if err != nil {
		return fmt.Errorf("decode %s: %w", src.Name, err)
	}
	if rest := bytes.TrimSpace(data[n:]); len(rest) > 0 {
		e.log.Warn().Int("offset", n).Int("bytes", len(rest)).Msg("ignoring trailing data")
	}
	e.log.Debug().Str("type", d.Label()).Str("rules", src.Name).Int("bytes", n).Msg("decoded value")

	b, err := dst.Encode(d, v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", dst.Name, err)
	}
	if *useHex && !dst.Text {
		b = []byte(hex.EncodeToString(b))
	}
	if dst.Text || *useHex {
		b = append(b, '\n')
	}
	e.log.Debug().Str("rules", dst.Name).Int("bytes", len(b)).Msg("encoded value")
	return e.writeOutput(*out, b)
}

func (e *env) readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		b, err := io.ReadAll(e.stdin)
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return b, nil
}

func (e *env) writeOutput(path string, b []byte) error {
	if path == "" || path == "-" {
		_, err := e.stdout.Write(b)
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
