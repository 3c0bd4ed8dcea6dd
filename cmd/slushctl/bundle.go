package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"

	"github.com/and161185/slushbook/internal/i18n"
)

// runBundle handles "bundle flatten|unflatten|pair". Output goes to -out, or to stdout
// as JSON.
func runBundle(args []string, stdout io.Writer) error {
	if len(args) < 1 {
		return errors.New("bundle: want flatten, unflatten or pair")
	}
	sub, rest := args[0], args[1:]
	fs := flag.NewFlagSet("bundle "+sub, flag.ContinueOnError)
	in := fs.String("in", "", "input bundle (.json, .yaml; - for stdin)")
	out := fs.String("out", "", "output file (format from extension); stdout when empty")
	master := fs.String("master", "", "master language bundle (pair)")
	target := fs.String("target", "", "target language bundle (pair)")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	switch sub {
	case "flatten":
		m, err := loadInput(*in)
		if err != nil {
			return err
		}
		return writeBundle(*out, i18n.Flatten(m), stdout)

	case "unflatten":
		m, err := loadInput(*in)
		if err != nil {
			return err
		}
		nested, err := i18n.Unflatten(m)
		if err != nil {
			return err
		}
		return writeBundle(*out, nested, stdout)

	case "pair":
		if *master == "" || *target == "" {
			return errors.New("bundle pair: -master and -target are required")
		}
		mb, err := i18n.LoadBundle(*master)
		if err != nil {
			return fmt.Errorf("master: %w", err)
		}
		tb, err := i18n.LoadBundle(*target)
		if err != nil {
			return fmt.Errorf("target: %w", err)
		}
		return writeJSON(*out, i18n.PairMaps(mb, tb), stdout)
	}
	return fmt.Errorf("bundle: unknown subcommand %q", sub)
}

func loadInput(path string) (map[string]any, error) {
	if path == "" {
		return nil, errors.New("-in is required")
	}
	return i18n.LoadBundle(path)
}

func writeBundle(path string, m map[string]any, stdout io.Writer) error {
	if path == "" {
		return i18n.EncodeBundle(stdout, m, i18n.FormatJSON)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := i18n.EncodeBundle(f, m, i18n.FormatOf(path)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(path string, v any, stdout io.Writer) error {
	w := stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
