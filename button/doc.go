// Package button debounces the mute button and latches the mute state.
package button
