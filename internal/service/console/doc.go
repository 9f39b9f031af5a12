// Package console implements pool-console, the lifeguard's terminal view.
//
// It polls the pool server's control API, prints the device table, rings the
// terminal bell when a device starts drowning, and can force a signal loss on
// a device for drills.
package console
