package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/deloai/campus/api"
	"github.com/deloai/campus/core"
	"github.com/deloai/campus/core/assessment"
	"github.com/deloai/campus/core/college"
	"github.com/deloai/campus/core/course"
	"github.com/deloai/campus/core/student"
	emailsvc "github.com/deloai/campus/services/email"
	logsvc "github.com/deloai/campus/services/logger"
	"github.com/deloai/campus/storage/database/mongodb"
)

func main() {
	std := log.New(os.Stdout, "CAMPUS : ", log.LstdFlags|log.Lshortfile)

	core.LoadConfig()

	var logger core.Logger
	if core.Conf.RollbarToken != "" {
		logger = logsvc.NewRollbarLogger(std, core.Conf)
	} else {
		logger = logsvc.NewStdLogger(std)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := mongodb.Open(ctx, core.Conf)
	if err != nil {
		std.Fatalf("opening database: %+v", err)
	}
	defer func() { _ = db.Close(context.Background()) }()

	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	collegeSvc := college.NewService(db, mailSvc, logger)
	studentSvc := student.NewService(db, db, mailSvc, logger)
	courseSvc := course.NewService(db, logger)
	assessmentSvc := assessment.NewService(db, db, logger)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(&echoapi.Options{
		Address:        core.Conf.Server.Address(),
		Logger:         logger,
		SignalShutdown: func() { shutdown <- syscall.SIGTERM },
		CollegeSvc:     collegeSvc,
		StudentSvc:     studentSvc,
		CourseSvc:      courseSvc,
		AssessmentSvc:  assessmentSvc,
	})

	go app.Start()

	<-shutdown
	logger.Info("shutting down...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err = app.Stop(stopCtx); err != nil {
		logger.Error("stopping server", err)
	}
}
