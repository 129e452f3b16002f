// Package snapshot persists the content of a store.IStore as a flat record stream.
//
// Format:
//
//	(keylen uint16 BE, key, valuelen uint16 BE, value)*
//
// There is no header and no trailer. The stream is written in ascending key order, so the
// same content always yields the same bytes and the same blake3 digest.
//
// The package contains:
//   - codec: Serialize and Deserialize, the latter an incremental four-state scanner
//   - file: crash safe writes (temp file, fsync, rename) with optional zstd compression
//   - snapshotter: the periodic task that skips writes when the digest did not change
//   - stats: size statistics used by the snapshot inspection commands
package snapshot
