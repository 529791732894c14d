// Package buildcontext defines the read-only ExecutionContext shared by every task in a run.
// Values are resolved once at process start (parameters, calculated version, CI environment)
// and handed to tasks by value; accessors return copies so no task can mutate what another sees.
package buildcontext
