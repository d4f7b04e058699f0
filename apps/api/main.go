package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/hoangvu/educenter/apps/api/echo"
	"github.com/hoangvu/educenter/core"
	"github.com/hoangvu/educenter/core/catalog"
	"github.com/hoangvu/educenter/core/enrollment"
	"github.com/hoangvu/educenter/core/lead"
	"github.com/hoangvu/educenter/core/schedule"
	"github.com/hoangvu/educenter/core/user"
	emailsvc "github.com/hoangvu/educenter/services/email"
	logsvc "github.com/hoangvu/educenter/services/logger"
	"github.com/hoangvu/educenter/storage/database"
	"github.com/hoangvu/educenter/storage/inmem"
)

const migrationsDir = "storage/database/migrations"

// reconcileInterval is how often draft/inactive courses are swept for
// activation once their start date passes.
const reconcileInterval = time.Hour

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up store; the in-memory store backs local development
	var (
		userRepo     user.Repository
		catalogRepo  catalog.Repository
		scheduleRepo schedule.Repository
		ledgerRepo   enrollment.Repository
		leadRepo     lead.Repository
	)
	if conf.Debug {
		db, err := inmem.Open()
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up store: %v", err), err)
		}
		userRepo = inmem.NewUserRepository(db)
		catalogRepo = inmem.NewCatalogRepository(db)
		scheduleRepo = inmem.NewScheduleRepository(db)
		ledgerRepo = inmem.NewEnrollmentRepository(db)
		leadRepo = inmem.NewLeadRepository(db)
	} else {
		db, err := setUpDB(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err = db.Close(); err != nil {
				logger.Error(fmt.Sprintf("closing database: %v", err), err)
			}
		}()
		userRepo = database.NewUserRepository(db)
		catalogRepo = database.NewCatalogRepository(db)
		scheduleRepo = database.NewScheduleRepository(db)
		ledgerRepo = database.NewEnrollmentRepository(db)
		leadRepo = database.NewLeadRepository(db)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(userRepo, mailSvc, conf)
	catSvc := catalog.NewService(catalogRepo, usrSvc, logger)
	ledgerSvc := enrollment.NewService(ledgerRepo, catSvc, usrSvc)
	schedSvc := schedule.NewService(scheduleRepo, catSvc, ledgerSvc, usrSvc)
	leadSvc := lead.NewService(leadRepo, usrSvc, catSvc, ledgerSvc, mailSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	reconcileCtx, stopReconciler := context.WithCancel(context.Background())
	defer stopReconciler()
	go catSvc.StartReconciler(reconcileCtx, reconcileInterval)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddr(), http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Address:     conf.Server.Addr(),
		Conf:        conf,
		Logger:      logger,
		Shutdown:    func() { shutdownCh <- syscall.SIGTERM },
		UserSvc:     usrSvc,
		CatalogSvc:  catSvc,
		ScheduleSvc: schedSvc,
		LedgerSvc:   ledgerSvc,
		LeadSvc:     leadSvc,
	})

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-shutdownCh:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		stopReconciler()

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			logger.Fatal(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db, migrationsDir); err != nil {
		return nil, err
	}
	return db, nil
}
