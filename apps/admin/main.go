package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/duka/core"
	emailsvc "github.com/trezcool/duka/services/email"
	logsvc "github.com/trezcool/duka/services/logger"
	"github.com/trezcool/duka/storage/database"
	sqlxrepos "github.com/trezcool/duka/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())
	dbx := sqlx.NewDb(db, "postgres")

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logsvc.NewStdLogger(logger))
	}

	// start CLI
	cli := commandLine{
		conf:    conf,
		db:      db,
		visRepo: sqlxrepos.NewVisitorRepository(dbx),
		stsRepo: sqlxrepos.NewStatsRepository(dbx),
		mailSvc: mailSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
