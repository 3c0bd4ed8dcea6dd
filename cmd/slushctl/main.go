// Command slushctl is the Slushbook admin tool: UI-locale bundle conversion and
// direct store maintenance (import, export, patch, migrate).
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/and161185/slushbook/internal/migrate"
	"github.com/and161185/slushbook/internal/repository/postgres"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `slushctl
Usage:
  slushctl [-dsn DSN] <cmd> [args]

Commands:
  version
  bundle flatten   -in <nested.json|yaml> [-out file]
  bundle unflatten -in <flat.json|yaml> [-out file]
  bundle pair      -master <da.json> -target <de.json> [-out file]
  migrate
  export  [-version 1.0|2.0] [-out file]
  import  [-in file]
  patch   -id <recipe> [-free true|false] [-image URL]

The DSN defaults to $SLUSHBOOK_DATABASE__DSN.
`)
	os.Exit(2)
}

// main dispatches subcommands; store commands open the database directly.
func main() {
	dsn := flag.String("dsn", os.Getenv("SLUSHBOOK_DATABASE__DSN"), "PostgreSQL DSN")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall deadline")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, *dsn, flag.Args(), os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dsn string, args []string, stdin io.Reader, stdout io.Writer) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "version":
		fmt.Fprintf(stdout, "slushctl %s (%s)\n", version, buildDate)
		return nil
	case "bundle":
		return runBundle(rest, stdout)
	case "migrate", "export", "import", "patch":
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	if dsn == "" {
		return fmt.Errorf("%s: -dsn is required", cmd)
	}
	if cmd == "migrate" {
		if err := migrate.Up(ctx, dsn); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "migrations applied")
		return nil
	}

	db, err := postgres.New(ctx, dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	recipes := postgres.NewRecipeRepo(db)

	now := time.Now()
	switch cmd {
	case "export":
		return exportRecipes(ctx, recipes, rest, stdout, now)
	case "import":
		return importRecipes(ctx, recipes, rest, stdin, stdout)
	default:
		return patchRecipe(ctx, recipes, rest, stdout, now)
	}
}
