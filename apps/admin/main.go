package main

import (
	"log"
	"os"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/academic"
	"github.com/chuoapp/chuo/core/grading"
	"github.com/chuoapp/chuo/core/user"
	emailsvc "github.com/chuoapp/chuo/services/email"
	"github.com/chuoapp/chuo/storage/database"
	sqlxrepos "github.com/chuoapp/chuo/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	// set up DB
	errAndDie(database.CreateIfNotExist(core.Conf))
	db, err := database.Open(core.Conf)
	errAndDie(err)
	defer db.Close()

	usrRepo := sqlxrepos.NewUserRepository(db)

	// start CLI
	cli := commandLine{
		db:          db,
		usrRepo:     usrRepo,
		usrSvc:      user.NewService(usrRepo, emailsvc.NewConsoleService()),
		academicSvc: academic.NewService(sqlxrepos.NewAcademicRepository(db)),
		gradingSvc:  grading.NewService(sqlxrepos.NewGradingRepository(db)),
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
