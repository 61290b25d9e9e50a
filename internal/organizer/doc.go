// Package organizer runs the two Camera Uploads organizers on top of the
// organize engine.
//
// DateOrganizer moves loose files in the uploads root into "YYYY-MM" month
// folders. DeviceOrganizer walks those month folders and moves photos that
// were not shot on a configured phone into an "Other" subfolder, optionally
// limited to the latest month. Both list the remote, hand entries to the
// engine, and return the engine's summary.
package organizer
