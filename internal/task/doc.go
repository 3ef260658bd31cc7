// Package task manages background job queuing, processing, and lifecycle.
// Frame analysis, script and publish-assist generation, and narration run
// here off the request path, and unfinished tasks survive restarts.
package task
