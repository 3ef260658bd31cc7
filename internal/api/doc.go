// Package api exposes the generation and frame analysis operations over HTTP.
// Handlers decode and validate requests, call the services, and translate
// service errors into status codes and stable error codes without leaking
// internal details.
package api
