package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/user"
)

// RollbarLogger reports to rollbar and mirrors everything to the process
// log. Args may carry an error, a map of extras, and at most one user.User
// (attached to the rollbar item as the person).
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) { rollbar.SetEnabled(enabled) }

func (l RollbarLogger) Debug(msg string, args ...interface{}) { l.report(rollbar.DEBUG, msg, args) }
func (l RollbarLogger) Info(msg string, args ...interface{})  { l.report(rollbar.INFO, msg, args) }
func (l RollbarLogger) Warn(msg string, args ...interface{})  { l.report(rollbar.WARN, msg, args) }
func (l RollbarLogger) Error(msg string, args ...interface{}) { l.report(rollbar.ERR, msg, args) }

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.CRIT, msg, args)
	l.std.Fatal(msg)
}

func (l RollbarLogger) report(level, msg string, args []interface{}) {
	rollbar.Log(level, l.prepare(msg, args)...)

	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	items := make([]interface{}, 0, len(args)+1)
	items = append(items, msg)

	var person bool
	for _, arg := range args {
		usr, ok := arg.(user.User)
		if !ok {
			items = append(items, arg)
			continue
		}
		if !person { // only the first user becomes the person
			rollbar.SetPerson(usr.ID, usr.Username, usr.Email)
			person = true
		}
	}
	if !person {
		rollbar.ClearPerson()
	}
	return items
}
