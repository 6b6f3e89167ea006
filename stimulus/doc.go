// Package stimulus generates excitation signals and plays them on an
// audio output device.
//
// Tone describes a fixed-shape excitation (sine, square, triangle, saw,
// noise) rendered to a finite buffer; Oscillator renders the same shapes
// block by block with a continuous running phase for open-ended playback.
// Swept excitations come from measure/sweep and are played through the
// same Player interface.
//
// MalgoPlayer drives the default output device through miniaudio. Playback
// is mono float32 and blocks until the signal has drained or the context
// is canceled.
package stimulus
