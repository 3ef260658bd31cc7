// Package mocks provides hand-written test doubles for the provider and
// store ports. Each double records its calls and can be steered either with
// canned return values or with a per-method function field.
package mocks
