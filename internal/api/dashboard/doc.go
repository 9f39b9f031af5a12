// Package dashboard serves the lifeguard view of the pool over HTTP.
//
// Routes, all behind HTTP basic auth:
//
//	GET /               single-page pool map
//	GET /api/devices    JSON snapshots in slot order
//	GET /ws             WebSocket stream of device.changed and device.alarm events
//
// The Hub is registered on the monitor bus as a state observer, so every
// published change reaches connected browsers in publication order.
package dashboard
