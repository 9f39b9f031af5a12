// Package alarm contains the domain types of drowning alarms.
//
// It defines Actor (who forced a signal loss from the control API) and Event
// (one alarm raised for one device) with Clone helpers to avoid leaking
// internal references across goroutines.
package alarm
