// Package events carries messages between components without direct
// dependencies between them.
//
// Two families of events flow through an Emitter: task requests, whose Type
// is the task type to create, and generation completion notices published
// after a generation attempt has been committed.
package events
