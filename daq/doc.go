// Package daq drives the burst-capture device over a byte-oriented
// command/response link.
//
// The device operates store-and-forward: a single command byte arms an
// uninterrupted sampling loop into a fixed pre-allocated region, and only
// after the loop completes is the whole burst transmitted. Sampling-interval
// stability is therefore decoupled from transport jitter, and the host must
// treat every reply as one atomic block of exactly depth*2 bytes. Partial
// replies are never valid bursts.
//
// Two trigger modes exist. Video mode captures a shallow burst for
// low-latency live display; the device keeps its allocator running because
// the window is short. Science mode captures the deep burst with device-side
// memory reclamation suspended for the duration of the sampling loop,
// reclaiming only after transmission.
//
// The link never retries on its own. A timeout or framing failure is
// surfaced to the caller, because a blind retry against a desynchronized
// device only compounds the desync; framing failures require a device reset.
package daq
