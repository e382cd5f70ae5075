package core

// Logger is any leveled logger the application can report through.
// Error/Fatal accept extra args (wrapped errors, the acting user...)
// that implementations may forward to an error tracker.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
