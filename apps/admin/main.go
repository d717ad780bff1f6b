package main

import (
	"log"
	"os"

	"github.com/trezcool/maabara/core"
	"github.com/trezcool/maabara/core/actor"
	"github.com/trezcool/maabara/services/logger"
	"github.com/trezcool/maabara/storage/database"
	"github.com/trezcool/maabara/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	// set up DB
	db, err := database.Open(core.Conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(database.Ping(db))

	// start CLI
	actorRepo := sqlxrepos.NewActorRepository(db)
	cli := commandLine{
		db:        db,
		actorRepo: actorRepo,
		gate:      actor.NewGate(actorRepo, logsvc.NewStdLogger(logger)),
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
