// Package cmd has all command line commands. Each command gets CommonOpts injected by the parser's
// command handler and opens the job store with them.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/syncs"

	"github.com/stelaras36/JobTracker/app/notify"
	"github.com/stelaras36/JobTracker/app/persistence"
	"github.com/stelaras36/JobTracker/app/saver"
	"github.com/stelaras36/JobTracker/app/tracker"
)

// CommonOptionsCommander extends flags.Commander with SetCommon.
// All commands should implement this interface.
type CommonOptionsCommander interface {
	SetCommon(commonOpts CommonOpts)
	Execute(args []string) error
}

// CommonOpts sets externally from main, shared across all commands
type CommonOpts struct {
	StoreType      string        // sqlite, file or memory
	Location       string        // db or json file
	Key            string        // key of the persisted jobs list
	SeedFile       string        // yaml file with seed entries, demo entries if empty
	Save           saver.Options // retry and timeout of background writes
	Webhooks       []string      // status change notification urls
	WebhookTimeout time.Duration
	Revision       string
	Out            io.Writer // command output, stdout if nil
}

// SetCommon satisfies CommonOptionsCommander interface and sets common option fields
func (c *CommonOpts) SetCommon(commonOpts CommonOpts) {
	*c = commonOpts
}

func (c *CommonOpts) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// session is an initialized store bound to its durable kv and writer
type session struct {
	kv       persistence.KV
	saver    *saver.Saver
	store    *tracker.Store
	notifier *notify.Service
	pending  *syncs.SizedGroup // async notifications, waited on close
}

// open makes kv, saver and store, then initializes the store from the persisted value.
// Value failing to decode is copied aside with persistence.Quarantine and replaced by the seed entries.
// With asyncNotify status change notifications don't block the caller.
func (c *CommonOpts) open(ctx context.Context, asyncNotify bool) (*session, error) {
	key := c.Key
	if key == "" {
		key = persistence.DefaultKey
	}

	var seed []tracker.Entry
	if c.SeedFile != "" {
		s, err := tracker.LoadSeed(c.SeedFile)
		if err != nil {
			return nil, err
		}
		seed = s
	}

	kv, err := persistence.Open(c.StoreType, c.Location)
	if err != nil {
		return nil, err
	}

	sess := &session{kv: kv, saver: saver.New(kv, key, c.Save)}
	sess.notifier = notify.NewService(notify.Params{URLs: c.Webhooks, Timeout: c.WebhookTimeout})

	storeOpts := tracker.Options{Saver: sess.saver, Seed: seed}
	if sess.notifier != nil {
		storeOpts.OnStatusChange = sess.notifier.OnStatusChange
		if asyncNotify {
			sess.pending = syncs.NewSizedGroup(4)
			storeOpts.OnStatusChange = func(prev, curr tracker.Entry) {
				sess.pending.Go(func(context.Context) { sess.notifier.OnStatusChange(prev, curr) })
			}
		}
	}
	sess.store = tracker.NewStore(storeOpts)

	entries, found, err := persistence.Load(ctx, kv, key)
	if err != nil {
		if !errors.Is(err, persistence.ErrDecode) {
			_ = kv.Close()
			return nil, fmt.Errorf("failed to load jobs: %w", err)
		}
		target, qerr := persistence.Quarantine(ctx, kv, key)
		if qerr != nil {
			_ = kv.Close()
			return nil, fmt.Errorf("%v, refusing to overwrite it: %w", err, qerr)
		}
		log.Printf("[WARN] %v, original value kept under %q, using seed entries", err, target)
		entries, found = nil, false
	}
	if err := sess.store.Initialize(entries, found); err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	log.Printf("[DEBUG] store initialized with %d jobs, persisted:%v", sess.store.Len(), found)
	return sess, nil
}

// close flushes the saver and closes kv once async notifications are done
func (s *session) close(ctx context.Context) error {
	if s.pending != nil {
		s.pending.Wait()
	}
	var errs []error
	if err := s.saver.Flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to save jobs: %w", err))
	}
	if err := s.kv.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	}
	return errors.Join(errs...)
}

// withSession runs fn on an opened session and closes it after, used by short-lived commands
func (c *CommonOpts) withSession(fn func(sess *session) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sess, err := c.open(ctx, false)
	if err != nil {
		return err
	}
	fnErr := fn(sess)
	if err := sess.close(ctx); err != nil {
		return errors.Join(fnErr, err)
	}
	return fnErr
}

// parseStatusArg matches fixed statuses case-insensitively and keeps any other non-empty value as is
func parseStatusArg(s string) (tracker.Status, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty status", tracker.ErrValidation)
	}
	if st, err := tracker.ParseStatus(s); err == nil {
		return st, nil
	}
	return tracker.Status(s), nil
}
