// Package generation produces structured marketing content with a chat model
// and manages its regeneration.
//
// An Orchestrator serves one kind of content (a video script, or
// publish-assist copy) through a cache, then the persisted attempt, then a
// fresh model call. Regeneration re-runs the model at a higher temperature
// up to a fixed number of times per entity. At most one synthesis runs per
// entity at a time; the stored attempt index advances only together with
// its content, and the cache is only written after the store commit.
package generation
