// Package ingest accepts wearable telemetry over TCP.
//
// Each connection carries newline-delimited lines of the form
// "<deviceId> <battery> <x> <y>". Lines are parsed and handed to the
// registry; malformed lines and unknown devices are logged and dropped.
// Nothing is ever written back to the client.
package ingest
