package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/researchnest/backend/core"
	"github.com/researchnest/backend/core/course"
	"github.com/researchnest/backend/core/user"
	emailsvc "github.com/researchnest/backend/services/email"
	logsvc "github.com/researchnest/backend/services/logger"
	"github.com/researchnest/backend/storage/database"
	sqlxrepos "github.com/researchnest/backend/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	if conf.Database.Engine == database.EngineMemory {
		logger.Fatal("the admin commands need a persistent database engine")
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
	defer db.Close()
	if err = database.Ping(db); err != nil {
		logger.Fatal(err.Error(), err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)

	// set up services
	mailSvc := emailsvc.NewConsoleService(conf, logger)
	cli := commandLine{
		db:     db,
		usrSvc: user.NewService(conf, sqlxrepos.NewUserRepository(db), mailSvc),
		courseSvc: course.NewService(
			conf,
			sqlxrepos.NewCourseRepository(db),
			sqlxrepos.NewEnrollmentRepository(db),
			sqlxrepos.NewProgressRepository(db),
			mailSvc,
		),
		validate: validate,
		out:      os.Stdout,
	}

	// start CLI
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(err.Error(), err)
		}
		db.Close()
		os.Exit(1)
	}
}
