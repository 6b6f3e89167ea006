// Package sweep implements exponential-sine-sweep system identification
// (the Farina method).
//
// A logarithmic sweep spends equal time per octave, so deconvolving a
// recorded response with the sweep's analytic inverse filter yields the
// system's linear impulse response with harmonic distortion products
// displaced to negative time. The k-th harmonic lands
//
//	Δt_k = T * ln(k) / ln(f2/f1)
//
// before the linear peak, because the k-th harmonic of the instantaneous
// frequency traces a copy of the sweep shifted earlier in time. A one-sided
// causal window starting at the linear peak therefore isolates the linear
// path, and a transform of that segment gives the Bode response.
//
// The inverse filter's amplitude envelope compensates the sweep's pink
// (-3 dB/octave) energy profile. The exact low-frequency shape of that
// envelope is still being tuned, so it is exposed as a replaceable
// strategy (LogSweep.Envelope) rather than a fixed formula; the default
// weights each position proportionally to its instantaneous frequency.
//
// # Usage
//
//	s := &sweep.LogSweep{
//	    StartFreq: 20, EndFreq: 20000,
//	    Duration: 1, SampleRate: 97793.1,
//	}
//	excitation, _ := s.Generate()
//	// ... play excitation, capture the response ...
//	ir, _ := s.Deconvolve(response)
//	linear := ir.Causal(0.002, 0.05)
//	mag, phase, freqs, _ := ir.Bode(0.002, 0.05)
package sweep
