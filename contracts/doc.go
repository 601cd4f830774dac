// Package contracts defines the normalized chat request/response shapes and
// the classified error taxonomy shared between the pipeline engine, the
// built-in interceptors, and caller-supplied provider clients.
//
// Provider clients live outside this module. They translate vendor-specific
// wire formats into these types and surface failures as *ProviderError so
// that interceptors (retry, logging, metrics) can classify them uniformly.
package contracts
