// Package domain contains the entities the generation layer produces and
// persists: frame analyses and recommendations, generation attempts, and the
// structured script and publish-assist payloads. It has no infrastructure
// dependencies.
package domain
