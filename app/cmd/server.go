package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/syncs"

	"github.com/stelaras36/JobTracker/app/backup"
	"github.com/stelaras36/JobTracker/app/persistence"
	"github.com/stelaras36/JobTracker/app/web"
)

// ServerCommand with command line flags and env
type ServerCommand struct {
	Listen       string  `long:"listen" env:"JOBTRACKER_LISTEN" default:"127.0.0.1:8080" description:"listen address"`
	AuthUser     string  `long:"auth-user" env:"JOBTRACKER_AUTH_USER" default:"jobtracker" description:"basic auth user"`
	AuthHash     string  `long:"auth-hash" env:"JOBTRACKER_AUTH_HASH" description:"bcrypt hash of basic auth password, no auth if empty"`
	MutationRate float64 `long:"rate" env:"JOBTRACKER_RATE" default:"10" description:"max mutating requests per second per client"`

	Backup struct {
		Location string        `long:"location" env:"LOCATION" description:"backup directory, no backups if empty"`
		Schedule string        `long:"schedule" env:"SCHEDULE" default:"@daily" description:"backup cron schedule"`
		Keep     time.Duration `long:"keep" env:"KEEP" default:"720h" description:"backup retention, 0 to keep all"`
	} `group:"backup" namespace:"backup" env-namespace:"JOBTRACKER_BACKUP"`

	CommonOpts
}

// Execute is the entry point for "server" command, runs until SIGTERM or interrupt
func (s *ServerCommand) Execute(_ []string) error {
	log.Printf("[INFO] start server, revision %s", s.Revision)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signals(cancel)
	return s.run(ctx)
}

// run starts web server, saver and optional backup schedule, blocks until ctx canceled or web server failed.
// Pending snapshot is written before return, on startup failures too.
func (s *ServerCommand) run(ctx context.Context) error {
	sess, err := s.open(ctx, true)
	if err != nil {
		return err
	}
	defer func() {
		// ctx is canceled by now, closing gets its own deadline
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		if err := sess.close(closeCtx); err != nil {
			log.Printf("[WARN] failed to close session: %v", err)
		}
	}()

	srv, err := web.New(web.Config{
		Store:        sess.store,
		Version:      s.Revision,
		AuthUser:     s.AuthUser,
		PasswordHash: s.AuthHash,
		MutationRate: s.MutationRate,
	})
	if err != nil {
		return err
	}

	var sched *backup.Scheduler
	if s.Backup.Location != "" {
		bk, err := backup.New(s.Backup.Location, s.Backup.Keep)
		if err != nil {
			return err
		}
		sched = &backup.Scheduler{Backup: bk, Source: func() (string, error) { return persistence.Encode(sess.store.List()) }}
		if err := sched.Start(s.Backup.Schedule); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	grp := syncs.NewErrSizedGroup(3, syncs.Context(ctx))
	grp.Go(func() error {
		defer cancel() // web server down stops everything else
		return srv.Run(ctx, s.Listen)
	})
	grp.Go(func() error {
		return sess.saver.Run(ctx)
	})
	grp.Go(func() error {
		<-ctx.Done()
		sched.Stop()
		return nil
	})

	if err := grp.Wait(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	log.Printf("[INFO] server stopped, saver %+v", sess.saver.Stats())
	return nil
}

func signals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	go func() {
		stacktrace := make([]byte, 8192)
		for sig := range sigChan {
			if sig == syscall.SIGQUIT { // catch SIGQUIT and print stack traces
				length := runtime.Stack(stacktrace, true)
				fmt.Println(string(stacktrace[:length]))
				continue
			}
			log.Printf("[WARN] %v signal", sig)
			cancel() // terminate on SIGTERM and interrupt
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT, syscall.SIGTERM, os.Interrupt)
}
