// Package metrics defines the instrumentation surface of the feed
// engine and a VictoriaMetrics backed implementation. Feeds and the
// fanout manager accept an IMetrics and call it on every read, write
// and fanout; the nop implementation keeps instrumentation optional.
//
// Thread Safety:
//
//	All implementations are safe for concurrent use. Timers returned by
//	the *Timer methods are single-use values: start, do the work, Stop.
package metrics
