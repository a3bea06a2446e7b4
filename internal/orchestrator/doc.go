// Package orchestrator runs jobs as durable sequences of named steps.
//
// A job is subscribed to an event name. Each delivery of an event starts (or
// resumes) one run per subscribed job; the run id is derived from the job name
// and the event id, so a redelivered event replays the same run. Step results
// are memoized against (run, step name): a replay returns stored results
// without re-executing completed steps. Steps that fail are retried in place
// with exponential backoff until the step budget is spent, at which point the
// run is marked failed and the job's failure handler is invoked.
//
// Events are persisted before dispatch and delivered at least once. Handlers
// must therefore be idempotent with respect to the entity state they read and
// write; emitting the next stage's event is the last step of a job.
package orchestrator
