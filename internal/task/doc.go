// Package task runs generation and export jobs in the background. Services
// persist a pending record and emit an event; the event handler builds a Task
// through the TaskFactory and submits it to the TaskRunner, whose worker pool
// drains a bounded queue.
package task
