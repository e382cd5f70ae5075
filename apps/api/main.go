package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/chuoapp/chuo/apps/api/echo"
	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/academic"
	"github.com/chuoapp/chuo/core/assessment"
	"github.com/chuoapp/chuo/core/enrollment"
	"github.com/chuoapp/chuo/core/grading"
	"github.com/chuoapp/chuo/core/registration"
	"github.com/chuoapp/chuo/core/user"
	emailsvc "github.com/chuoapp/chuo/services/email"
	logsvc "github.com/chuoapp/chuo/services/logger"
	notifsvc "github.com/chuoapp/chuo/services/notification"
	"github.com/chuoapp/chuo/storage/database"
	sqlxrepos "github.com/chuoapp/chuo/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	var logger core.Logger
	if core.Conf.Debug {
		logger = logsvc.NewConsoleLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, core.Conf)
	}

	// set up DB
	db, err := database.Open(core.Conf)
	errAndDie(std, err)
	defer db.Close()
	errAndDie(std, database.Migrate(db.DB))

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc)
	notifSvc := notifsvc.NewService(sqlxrepos.NewNotificationRepository(db), usrSvc, mailSvc, logger)
	academicSvc := academic.NewService(sqlxrepos.NewAcademicRepository(db))
	gradingSvc := grading.NewService(sqlxrepos.NewGradingRepository(db))
	assessmentSvc := assessment.NewService(sqlxrepos.NewAssessmentRepository(db), gradingSvc, notifSvc, logger)
	enrollmentSvc := enrollment.NewService(sqlxrepos.NewEnrollmentRepository(db), gradingSvc, notifSvc, logger)
	registrationSvc := registration.NewService(
		sqlxrepos.NewRegistrationRepository(db), gradingSvc, enrollmentSvc, notifSvc, logger)

	// start API server
	app := echoapi.NewServer(&echoapi.Options{
		Address:         fmt.Sprintf("%s:%d", core.Conf.Server.Host, core.Conf.Server.Port),
		UserSvc:         usrSvc,
		AcademicSvc:     academicSvc,
		GradingSvc:      gradingSvc,
		AssessmentSvc:   assessmentSvc,
		EnrollmentSvc:   enrollmentSvc,
		RegistrationSvc: registrationSvc,
		NotifSvc:        notifSvc,
		Logger:          logger,
	})
	go app.Start()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		logger.Error("stopping server", err)
	}
}

func errAndDie(std *log.Logger, err error) {
	if err != nil {
		std.Fatal(err)
	}
}
