package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/joho/godotenv"
	"github.com/umputun/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/stelaras36/JobTracker/app/cmd"
	"github.com/stelaras36/JobTracker/app/saver"
)

// Opts with all cli commands and flags
type Opts struct {
	ServerCmd cmd.ServerCommand `command:"server" description:"run json api server"`
	ListCmd   cmd.ListCommand   `command:"list" description:"list jobs"`
	AddCmd    cmd.AddCommand    `command:"add" description:"add job"`
	StatusCmd cmd.StatusCommand `command:"status" description:"change job status"`
	DeleteCmd cmd.DeleteCommand `command:"delete" description:"delete job"`
	SchemaCmd cmd.SchemaCommand `command:"schema" description:"print json schema of stored jobs"`

	Store    string `long:"store" env:"JOBTRACKER_STORE" choice:"sqlite" choice:"file" choice:"memory" default:"sqlite" description:"store type"`
	Location string `long:"location" env:"JOBTRACKER_LOCATION" default:"jobtracker.db" description:"store location, db or json file"`
	Key      string `long:"key" env:"JOBTRACKER_KEY" default:"jobs_json" description:"key of the stored jobs"`
	Seed     string `long:"seed" env:"JOBTRACKER_SEED" description:"yaml file with initial jobs, demo jobs if empty"`

	Save struct {
		Attempts int           `long:"attempts" env:"ATTEMPTS" default:"3" description:"how many times to repeat failed save"`
		Duration time.Duration `long:"duration" env:"DURATION" default:"100ms" description:"initial backoff duration"`
		Factor   float64       `long:"factor" env:"FACTOR" default:"2" description:"backoff factor"`
		Jitter   bool          `long:"jitter" env:"JITTER" description:"backoff jitter"`
		Timeout  time.Duration `long:"timeout" env:"TIMEOUT" default:"5s" description:"timeout of a single save"`
	} `group:"save" namespace:"save" env-namespace:"JOBTRACKER_SAVE"`

	Notify struct {
		Webhooks []string      `long:"webhook" env:"WEBHOOK" env-delim:"," description:"webhook url(s) for status changes"`
		Timeout  time.Duration `long:"timeout" env:"TIMEOUT" default:"5s" description:"webhook timeout"`
	} `group:"notify" namespace:"notify" env-namespace:"JOBTRACKER_NOTIFY"`

	Log struct {
		Enabled         bool   `long:"enabled" env:"ENABLED" description:"enable logging to file"`
		Filename        string `long:"filename" env:"FILENAME" default:"jobtracker.log" description:"log file name"`
		MaxSize         int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"max log file size in MB"`
		MaxBackups      int    `long:"max-backups" env:"MAX_BACKUPS" default:"7" description:"max number of rotated files"`
		MaxAge          int    `long:"max-age" env:"MAX_AGE" default:"30" description:"max age of rotated files in days"`
		EnabledCompress bool   `long:"compress" env:"COMPRESS" description:"compress rotated files"`
	} `group:"log" namespace:"log" env-namespace:"JOBTRACKER_LOG"`

	EnvFile string `long:"env-file" env:"JOBTRACKER_ENV_FILE" default:".env" description:"env file loaded on start, skipped if missing"`
	Dbg     bool   `long:"dbg" env:"JOBTRACKER_DEBUG" description:"debug mode"`
}

var opts Opts

var revision = "unknown"

func main() {
	if err := run(os.Args[1:]); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

// run parses args and executes selected command
func run(args []string) error {
	opts = Opts{}
	loadEnvFile(envFileName(args))

	p := flags.NewParser(&opts, flags.Default)
	p.CommandHandler = func(command flags.Commander, args []string) error {
		logOut := setupLogs()
		if lj, ok := logOut.(*lumberjack.Logger); ok {
			defer lj.Close()
		}

		defer func() {
			if x := recover(); x != nil {
				log.Printf("[WARN] run time panic:\n%v", x)
				panic(x)
			}
		}()

		c, ok := command.(cmd.CommonOptionsCommander)
		if !ok {
			return fmt.Errorf("unsupported command %T", command)
		}
		c.SetCommon(makeCommonOpts())
		err := c.Execute(args)
		if err != nil {
			log.Printf("[ERROR] failed with %v", err)
		}
		return err
	}

	_, err := p.ParseArgs(args)
	return err
}

func makeCommonOpts() cmd.CommonOpts {
	return cmd.CommonOpts{
		StoreType: opts.Store,
		Location:  opts.Location,
		Key:       opts.Key,
		SeedFile:  opts.Seed,
		Save: saver.Options{
			Attempts: opts.Save.Attempts,
			Duration: opts.Save.Duration,
			Factor:   opts.Save.Factor,
			Jitter:   opts.Save.Jitter,
			Timeout:  opts.Save.Timeout,
		},
		Webhooks:       opts.Notify.Webhooks,
		WebhookTimeout: opts.Notify.Timeout,
		Revision:       revision,
		Out:            os.Stdout,
	}
}

// envFileName picks env file from --env-file arg or JOBTRACKER_ENV_FILE, .env by default.
// Env file has to be loaded before flags parsing, so the arg is looked up directly.
func envFileName(args []string) string {
	for i, a := range args {
		if a == "--env-file" && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(a, "--env-file="); ok {
			return v
		}
	}
	if v := os.Getenv("JOBTRACKER_ENV_FILE"); v != "" {
		return v
	}
	return ".env"
}

// loadEnvFile sets env from the file, variables already set are not overridden
func loadEnvFile(fname string) {
	if _, err := os.Stat(fname); err != nil {
		return
	}
	if err := godotenv.Load(fname); err != nil {
		fmt.Fprintf(os.Stderr, "can't load env file %s: %v\n", fname, err)
	}
}

// setupLogs configures lgr, returns log destination. Logs go to stderr unless file logging enabled.
func setupLogs() io.Writer {
	var out io.Writer = os.Stderr
	if opts.Log.Enabled {
		out = &lumberjack.Logger{
			Filename:   opts.Log.Filename,
			MaxSize:    opts.Log.MaxSize,
			MaxBackups: opts.Log.MaxBackups,
			MaxAge:     opts.Log.MaxAge,
			Compress:   opts.Log.EnabledCompress,
		}
	}

	if opts.Dbg {
		log.Setup(log.Out(out), log.Debug, log.Msec, log.LevelBraces, log.CallerFile, log.CallerFunc)
		return out
	}
	log.Setup(log.Out(out), log.Msec, log.LevelBraces)
	return out
}
