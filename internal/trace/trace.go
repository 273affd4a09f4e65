// Package trace provides pool lifecycle logging that compiles to a no-op
// unless built with the debug tag (-tags debug), matching the teacher's
// convention of keeping hot-path diagnostics out of normal builds.
package trace

// Worker logs a worker lifecycle event: parked, woken, stole, grew, quit.
func Worker(id int, format string, args ...any) {
	worker(id, format, args...)
}

// Pool logs a pool-level lifecycle event: started, shutdown requested,
// shutdown complete.
func Pool(format string, args ...any) {
	pool(format, args...)
}
