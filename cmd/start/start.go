package start

import (
	"context"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"syscall"

	"github.com/kiln-build/kiln/api"
	jsvc "github.com/kiln-build/kiln/api/rest/service/job"
	"github.com/kiln-build/kiln/internal/event"
	"github.com/kiln-build/kiln/internal/recipe"
	"github.com/kiln-build/kiln/internal/runner"
	"github.com/kiln-build/kiln/internal/store"
	"github.com/kiln-build/kiln/pkg/db"
	"github.com/kiln-build/kiln/pkg/env"
	"github.com/kiln-build/kiln/pkg/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	usage   = "start"
	short   = "Start a kiln build server"
	long    = "This command starts the kiln API and the job runner"
	example = "kiln start"
)

var (
	// Cmd is the start command.
	Cmd = &cobra.Command{
		Use:        usage,
		Short:      short,
		Long:       long,
		Aliases:    []string{"s", "serve"},
		SuggestFor: []string{"launch", "boot", "up", "run", "begin"},
		Example:    example,
		Args:       cobra.NoArgs,
		RunE:       start,
	}
)

func start(cmd *cobra.Command, args []string) error {
	vars := env.Variables()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	log.Info("opening database", "type", vars.DatabaseType, "dsn", vars.DatabaseDSN)
	conn, err := db.Open(vars.DatabaseType, vars.DatabaseDSN)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := conn.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Error("database close failure", "error", err)
			}
		}
	}()

	log.Info("migrating database")
	if err := db.Migrate(conn); err != nil {
		return errors.Wrap(err, "database migration failure")
	}

	if _, err := exec.LookPath(vars.RunnerBinary); err != nil {
		log.Warn("runner binary not found; jobs will fail to start", "binary", vars.RunnerBinary, "error", err)
	}

	var (
		st       = store.New(conn)
		bus      = event.New(event.WithBufferSize(vars.SubscriberBuffer))
		executor = runner.NewProcessExecutor(vars.RunnerBinary, vars.WorkDir, vars.LogRoot(), vars.OutputRoot())
		worker   = runner.New(st, executor, bus, vars.PollInterval)
		lister   = recipe.NewLister(vars.RunnerBinary, vars.WorkDir)
		svc      = jsvc.Service(st, worker, bus, lister, vars.PageSize)
	)

	if err := worker.Recover(ctx, executor.LogPath); err != nil {
		return errors.Wrap(err, "failed to recover interrupted jobs")
	}

	server := api.New(api.Config{
		Jobs:       svc,
		Bus:        bus,
		LogRoot:    vars.LogRoot(),
		OutputRoot: vars.OutputRoot(),
	})

	signalChan := make(chan os.Signal, 1)
	stop := make(chan os.Signal, 1)

	go func() {
		for s := range signalChan {
			switch s {
			case syscall.SIGUSR1:
				log.Info("dumping stack traces due to SIGUSR1 signal")
				if profile := pprof.Lookup("goroutine"); profile != nil {
					if err := profile.WriteTo(os.Stdout, 1); err != nil {
						log.Error("write goroutine profile", "error", err)
					}
				}
			default:
				stop <- s
				return
			}
		}
	}()

	signal.Notify(signalChan, syscall.SIGUSR1, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalChan)

	errs := make(chan error, 1)
	addr := net.JoinHostPort(vars.Host, strconv.Itoa(vars.Port))

	go func() {
		log.Info("spinning up api")
		errs <- server.Start(addr)
	}()

	log.Info("launching job runner", "binary", vars.RunnerBinary, "work_dir", vars.WorkDir)
	worker.Start(ctx)

	var runErr error
	select {
	case runErr = <-errs:
		if runErr != nil {
			log.Error("api failure", "error", runErr)
		}
	case s := <-stop:
		log.Info("gracefully shutting down", "signal", s.String())
	}

	shutdown(server, worker, cancel)

	return runErr
}

// shutdown stops the API first so no new jobs arrive, then lets the
// runner finish the job in flight.
func shutdown(server *api.Server, worker *runner.Runner, cancel context.CancelFunc) {
	ctx, done := context.WithTimeout(context.Background(), env.Variables().ShutdownTimeout)
	defer done()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("api shutdown failure", "error", err)
	}

	worker.Stop()
	cancel()
	worker.Wait()

	log.Info("shutdown complete")
}
