// Package metrics provides build and serve metrics for pagesmith.
//
// Components receive a Recorder and default to NoopRecorder, so metrics
// collection needs no nil checks at call sites:
//
//	builder := site.New(cfg, renderer, site.WithRecorder(metrics.NoopRecorder{}))
//
// `pagesmith serve --metrics` swaps in a PrometheusRecorder and exposes it on
// /metrics via HTTPHandler.
package metrics
