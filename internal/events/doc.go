// Package events decouples the services that accept jobs from the task
// runtime that executes them. A service emits a TaskRequestEvent naming the
// task type and the job record; handlers registered on the emitter turn it
// into work.
package events
