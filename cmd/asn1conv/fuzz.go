package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"codello.dev/asn1rt"
	"codello.dev/asn1rt/internal/codec"
	"codello.dev/asn1rt/random"
)

func (e *env) fuzz(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("fuzz", flag.ContinueOnError)
	fs.SetOutput(stderr)
	schemaPath := fs.String("schema", e.cfg.Schema, "TOML descriptor table")
	typeName := fs.String("type", e.cfg.Type, "type of the values, defaults to the schema root")
	rules := fs.String("rules", strings.Join(e.cfg.Rules, ","), "comma separated encoding rules, defaults to all")
	count := fs.Int("n", e.cfg.Count, "number of random values")
	seed := fs.Uint64("seed", e.cfg.Seed, "seed of the first value")
	workers := fs.Int("workers", e.cfg.Workers, "number of concurrent workers")
	maxDepth := fs.Int("depth", e.cfg.MaxDepth, "maximum nesting depth of generated values")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *workers <= 0 {
		return fmt.Errorf("invalid number of workers %d", *workers)
	}

	d, err := loadType(*schemaPath, *typeName)
	if err != nil {
		return err
	}
	rs := codec.All()
	if *rules != "" {
		rs = rs[:0]
		for _, name := range normalizeRules(strings.Split(*rules, ",")) {
			r, err := lookupRule(name)
			if err != nil {
				return err
			}
			rs = append(rs, r)
		}
	}

	f := &fuzzer{typ: d, rules: rs, maxDepth: *maxDepth}
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*workers)
	for i := range *count {
		if ctx.Err() != nil {
			break
		}
		s := *seed + uint64(i)
		g.Go(func() error {
			return f.check(s)
		})
	}
	err = g.Wait()
	level := zerolog.InfoLevel
	if err != nil {
		level = zerolog.ErrorLevel
	}
	e.log.WithLevel(level).Err(err).Str("type", d.Label()).Int64("values", f.values.Load()).Int64("encodings", f.encodings.Load()).Msg("fuzz finished")
	return err
}

// fuzzer round trips random values of one type through a set of encoding
// rules.
type fuzzer struct {
	typ      *asn1rt.Descriptor
	rules    []codec.Rule
	maxDepth int

	values    atomic.Int64
	encodings atomic.Int64
}

func (f *fuzzer) check(seed uint64) error {
	g := random.New(seed)
	g.MaxDepth = f.maxDepth
	v, err := g.Generate(f.typ)
	if err != nil {
		return fmt.Errorf("seed %d: %w", seed, err)
	}
	f.values.Add(1)
	for _, r := range f.rules {
		b, err := r.RoundTrip(f.typ, v)
		if err != nil {
			return fmt.Errorf("seed %d: %w (encoding %s)", seed, err, printable(r, b))
		}
		f.encodings.Add(1)
	}
	return nil
}

func printable(r codec.Rule, b []byte) string {
	if r.Text {
		return fmt.Sprintf("%q", b)
	}
	return hex.EncodeToString(b)
}
