package main

import (
	"log"
	"os"

	"github.com/trezcool/maabara/apps/api/echo"
	"github.com/trezcool/maabara/core"
	"github.com/trezcool/maabara/core/actor"
	"github.com/trezcool/maabara/core/attendance"
	"github.com/trezcool/maabara/core/event"
	"github.com/trezcool/maabara/core/exam"
	"github.com/trezcool/maabara/services/email"
	"github.com/trezcool/maabara/services/logger"
	"github.com/trezcool/maabara/storage/database"
	"github.com/trezcool/maabara/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lshortfile)

	var logger core.Logger
	if core.Conf.Debug || core.Conf.TestMode {
		logger = logsvc.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, core.Conf)
	}

	// set up DB
	db, err := database.Open(core.Conf)
	errAndDie(logger, err)
	defer db.Close()
	errAndDie(logger, database.Ping(db))

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	actorRepo := sqlxrepos.NewActorRepository(db)
	eventRepo := sqlxrepos.NewEventRepository(db)
	examRepo := sqlxrepos.NewExamRepository(db)

	actorSvc := actor.NewService(actorRepo)
	gate := actor.NewGate(actorRepo, logger)
	eventSvc := event.NewService(eventRepo)
	attendanceSvc := attendance.NewService(eventRepo)
	examSvc := exam.NewService(examRepo, mailSvc)

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Address:       core.Conf.Server.Addr,
			Logger:        logger,
			ActorSvc:      actorSvc,
			Gate:          gate,
			EventSvc:      eventSvc,
			AttendanceSvc: attendanceSvc,
			ExamSvc:       examSvc,
		},
	)
	app.Start()
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
