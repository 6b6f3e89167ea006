// Package transfer orchestrates one transfer-function measurement: it
// arms the capture device, plays a swept stimulus, pairs the response
// with the stimulus descriptor, and deconvolves the pair into an
// impulse response.
//
// The capture trigger is issued before playback starts, so the burst
// brackets the whole stimulus. A run whose capture window cannot hold
// the stimulus plus its settling tail fails with
// ErrInsufficientCaptureWindow instead of truncating; a pair whose
// descriptor rate disagrees with the response's effective rate fails
// with ErrRateMismatch instead of producing a silently skewed result.
package transfer
