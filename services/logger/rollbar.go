package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/researchnest/backend/core"
	"github.com/researchnest/backend/core/user"
)

// RollbarLogger prints to a standard logger and reports to Rollbar when a token is configured.
// Each logger owns its Rollbar client, so the api & db loggers can be silenced independently.
type RollbarLogger struct {
	std    *log.Logger
	client *rollbar.Client
	debug  bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	client := rollbar.New(conf.RollbarToken, conf.Env, conf.Build, conf.Server.Host, "github.com/researchnest/backend")
	client.SetStackTracer(errors.StackTracer)
	client.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{std: std, client: client, debug: conf.Debug}
}

func (l *RollbarLogger) Enable(enabled bool) {
	l.client.SetEnabled(enabled)
}

// Close waits for the pending reports to be sent.
func (l *RollbarLogger) Close() {
	l.client.Close()
}

// report sends msg & args to Rollbar. A user.User arg becomes the person of the item, other args
// (errors & map[string]interface{} extras) are passed along.
func (l *RollbarLogger) report(level, msg string, args []interface{}) {
	items := make([]interface{}, 0, len(args)+1)
	items = append(items, msg)
	var person *user.User
	for _, arg := range args {
		switch a := arg.(type) {
		case user.User:
			if person == nil {
				person = &a
			}
		case *user.User:
			if person == nil && a != nil {
				person = a
			}
		default:
			items = append(items, arg)
		}
	}
	if person != nil && person.ID != "" {
		l.client.SetPerson(person.ID, person.FullName, person.Email)
	} else {
		l.client.ClearPerson()
	}

	switch level {
	case rollbar.DEBUG:
		l.client.Debug(items...)
	case rollbar.INFO:
		l.client.Info(items...)
	case rollbar.WARN:
		l.client.Warning(items...)
	case rollbar.ERR:
		l.client.Error(items...)
	default:
		l.client.Critical(items...)
	}
}

func (l *RollbarLogger) print(level, msg string, args []interface{}) {
	l.std.Printf("%s: %s", level, msg)
	for _, arg := range args {
		switch arg.(type) {
		case user.User, *user.User:
			continue
		}
		l.std.Printf("%+v\n", arg)
	}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.report(rollbar.DEBUG, msg, args)
	l.print("DEBUG", msg, args)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	l.report(rollbar.INFO, msg, args)
	l.print("INFO", msg, args)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	l.report(rollbar.WARN, msg, args)
	l.print("WARN", msg, args)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	l.report(rollbar.ERR, msg, args)
	l.print("ERROR", msg, args)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.CRIT, msg, args)
	l.print("FATAL", msg, args)
	l.client.Close()
	l.std.Fatal(msg)
}
