// Package cache defines ItemCache, the keyed "load once, hold until told
// otherwise" store used by the content loaders. Values are produced lazily by
// a caller supplied factory; concurrent requests for the same key share one
// factory execution through a per-key load token, while unrelated keys never
// wait on each other. Entries leave the cache only through Unload/UnloadAll,
// which hand the value to an optional release hook so owners of external
// resources (textures) can free them.
package cache
