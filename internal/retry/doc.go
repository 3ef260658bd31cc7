// Package retry implements the executor that wraps every outbound call to an
// unreliable provider (chat completion, vision analysis, speech synthesis).
//
// Each attempt is classified into one Outcome kind:
//
//   - Success: the response parsed into a payload
//   - Retryable: transient upstream unavailability (gateway timeout, attempt
//     timeout expiry); retried with exponential backoff while attempts remain
//   - Skip: the provider reports the input cannot be processed; terminal for
//     this unit of work and never retried
//   - Fatal: anything else, including exhausted retries, parse failures and
//     empty payloads
//
// Provider adapters plug in through Call, which supplies the request sender,
// the payload parser and an optional blank-payload check. Per-provider
// behavior lives entirely in Policy.
package retry
