// Package capability retrieves and normalises the camera's per-subsystem
// capability and current-value documents.
//
// Each subsystem (motion, streaming channels, two-way audio, time, OSD
// overlays, PTZ, device info, video input) is fetched independently: a
// failure degrades only the settings derived from that subsystem and is
// recorded in the snapshot rather than propagated. PTZ in particular is
// commonly unsupported and reduces to "absent" instead of erroring.
//
// The resulting Snapshot is immutable once produced and replaced
// wholesale on refetch. Subsystems retain the raw current-value document
// they were extracted from so the patcher can edit it in place.
package capability
