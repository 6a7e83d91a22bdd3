// Command novelctl is the operator tool for novelAuth deployments.
//
//	novelctl hash                       print an Argon2id hash for a prompted password
//	novelctl strength [-hint name]      print the 0-4 strength score of a prompted password
//	novelctl verify -hash DIGEST        check a prompted password against a stored digest
//	novelctl create-account -dsn DSN -email E -username U [-role admin]
//
// Passwords are always read from the terminal without echo.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/novelAuth/account"
	"github.com/MrEthical07/novelAuth/password"
	"github.com/MrEthical07/novelAuth/store/sqlstore"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "novelctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: novelctl hash|strength|verify|create-account [flags]")
	}

	switch args[0] {
	case "hash":
		return cmdHash(args[1:], out)
	case "strength":
		return cmdStrength(args[1:], out)
	case "verify":
		return cmdVerify(args[1:], out)
	case "create-account":
		return cmdCreateAccount(args[1:], out)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func newHasher() (*password.Hasher, error) {
	return password.NewHasher(password.DefaultArgon2Params())
}

func cmdHash(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	secret, err := promptNewSecret(out)
	if err != nil {
		return err
	}
	h, err := newHasher()
	if err != nil {
		return err
	}
	digest, err := h.Hash(secret)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, digest)
	return err
}

func cmdStrength(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("strength", flag.ContinueOnError)
	hints := fs.String("hint", "", "comma-separated words the password must not lean on, e.g. username,email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	secret, err := promptSecret(out, "Password: ")
	if err != nil {
		return err
	}
	var words []string
	if *hints != "" {
		words = strings.Split(*hints, ",")
	}
	_, err = fmt.Fprintf(out, "score: %d/4\n", password.Strength(secret, words...))
	return err
}

func cmdVerify(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	digest := fs.String("hash", "", "stored digest (argon2id or bcrypt)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *digest == "" {
		return errors.New("-hash is required")
	}

	secret, err := promptSecret(out, "Password: ")
	if err != nil {
		return err
	}
	h, err := newHasher()
	if err != nil {
		return err
	}
	ok, err := h.Verify(secret, *digest)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("password does not match")
	}
	_, err = fmt.Fprintln(out, "ok")
	return err
}

func cmdCreateAccount(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("create-account", flag.ContinueOnError)
	dialectName := fs.String("dialect", "postgres", "postgres or sqlite")
	dsn := fs.String("dsn", os.Getenv("NOVELAUTH_DATABASE_DSN"), "database DSN")
	email := fs.String("email", "", "account email")
	username := fs.String("username", "", "account username")
	role := fs.String("role", string(account.RoleUser), "user or admin")
	premium := fs.Bool("premium", false, "grant premium")
	migrate := fs.Bool("migrate", false, "apply migrations first")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *dsn == "" || *email == "" || *username == "" {
		return errors.New("-dsn, -email and -username are required")
	}
	r := account.Role(*role)
	if !r.Valid() {
		return fmt.Errorf("invalid role %q", *role)
	}
	dialect, err := sqlstore.ParseDialect(*dialectName)
	if err != nil {
		return err
	}

	secret, err := promptNewSecret(out)
	if err != nil {
		return err
	}
	h, err := newHasher()
	if err != nil {
		return err
	}
	digest, err := h.Hash(secret)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sqlstore.Open(dialect, *dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	if *migrate {
		if err := sqlstore.Migrate(ctx, db, dialect); err != nil {
			return err
		}
	}

	now := time.Now()
	a := account.Account{
		Email:             strings.TrimSpace(*email),
		Username:          strings.TrimSpace(*username),
		Role:              r,
		Premium:           *premium,
		Verified:          true,
		PasswordHash:      digest,
		PasswordChangedAt: &now,
	}
	if err := sqlstore.New(db, dialect).Create(ctx, &a); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "created %s (%s)\n", a.ID, a.Role)
	return err
}
