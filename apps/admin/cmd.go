package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/duka/core"
	"github.com/trezcool/duka/core/stats"
	"github.com/trezcool/duka/core/visitor"
	"github.com/trezcool/duka/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf    *core.Config
	db      *sql.DB
	visRepo visitor.Repository
	stsRepo stats.Repository
	mailSvc core.EmailService
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate                  - apply pending database migrations")
	fmt.Println("  hashpassword             - hash a password for the admin credentials config")
	fmt.Println("  report [-email ADDRESS]  - email a traffic summary report")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	reportCmd := flag.NewFlagSet("report", flag.ExitOnError)
	reportEmail := reportCmd.String("email", "", "The recipient's email address. Defaults to the configured admin email.")

	switch args[1] {
	case "migrate":
		return database.Migrate(cli.db)
	case "hashpassword":
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			cli.printUsage()
			return errHelp
		}
		return cli.hashPassword(string(pwd))
	case "report":
		if err := reportCmd.Parse(args[2:]); err != nil {
			return err
		}
		email := *reportEmail
		if email == "" {
			email = cli.conf.AdminEmail
		}
		return cli.report(email)
	default:
		cli.printUsage()
		return errHelp
	}
}
