package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/and161185/slushbook/internal/repository"
	"github.com/and161185/slushbook/internal/service"
	"github.com/and161185/slushbook/internal/transfer"
)

// exportRecipes writes every stored recipe as a transfer document.
func exportRecipes(ctx context.Context, recipes repository.RecipeRepository, args []string, stdout io.Writer, now time.Time) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	version := fs.String("version", transfer.CurrentVersion, "document version (1.0 or 2.0)")
	out := fs.String("out", "", "output file; stdout when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	doc, err := service.ExportAll(ctx, recipes, *version, now)
	if err != nil {
		return err
	}
	w := stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return transfer.Encode(w, doc)
}

// importRecipes upserts a transfer document and prints the result.
func importRecipes(ctx context.Context, recipes repository.RecipeRepository, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	in := fs.String("in", "-", "input document; - for stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	r := stdin
	if *in != "-" {
		f, err := os.Open(*in)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	doc, err := transfer.Decode(r)
	if err != nil {
		return err
	}
	res, err := service.ImportAll(ctx, recipes, doc)
	if err != nil {
		return err
	}
	return writeJSON("", res, stdout)
}

// patchRecipe overwrites is_free and image_url on one recipe.
func patchRecipe(ctx context.Context, recipes repository.RecipeRepository, args []string, stdout io.Writer, now time.Time) error {
	fs := flag.NewFlagSet("patch", flag.ContinueOnError)
	id := fs.String("id", "", "recipe id")
	free := fs.String("free", "", "set is_free (true|false)")
	image := fs.String("image", "", "set image_url")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("patch: -id is required")
	}
	var p service.RecipePatch
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "image" {
			p.ImageURL = image
		}
	})
	if *free != "" {
		b, err := strconv.ParseBool(*free)
		if err != nil {
			return fmt.Errorf("patch: -free: %w", err)
		}
		p.IsFree = &b
	}
	if p.IsFree == nil && p.ImageURL == nil {
		return errors.New("patch: nothing to change; pass -free and/or -image")
	}
	rec, err := service.PatchRecipe(ctx, recipes, *id, p, now)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s ver=%d is_free=%t image_url=%q\n", rec.ID, rec.Ver, rec.IsFree, rec.ImageURL)
	return nil
}
