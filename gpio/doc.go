// Package gpio provides LEDs and polarity-aware lines on top of [hal.Pin].
package gpio
