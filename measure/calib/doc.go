// Package calib derives the device's true sample rate from a capture of a
// known-frequency reference, typically mains hum coupled into the input.
//
// The nominal rate reported by the firmware drifts with the board clock.
// Measuring where the reference line actually lands in the spectrum gives a
// correction factor; applying it to the nominal rate yields the calibrated
// rate used by every downstream frequency axis.
//
// Calibration is measured once and cached on disk. Mains frequency is
// stable enough over the short term that re-measuring per session adds
// variance, not accuracy, so the cache is reused until explicitly
// invalidated.
package calib
