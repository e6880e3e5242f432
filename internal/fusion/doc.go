// Package fusion turns a stream of satellite ranging measurements into a
// live 2D position estimate.
//
// A Driver owns one age-bounded sample store. Every measurement is processed
// to completion before the next: store update, staleness eviction, live
// source count, conditional trilateration on the first three sources in
// insertion order, and publication of the result. The estimate has no
// history; it is recomputed from scratch on every update and cleared whenever
// it cannot be computed.
//
// A Driver is not safe for concurrent use. Callers that share one across
// goroutines must serialise access themselves (see internal/pipeline).
package fusion
