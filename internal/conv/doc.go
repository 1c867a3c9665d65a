// Package conv provides safe integer type conversion utilities.
//
// Sizes enter the allocator as int64 (the pool's accounting width) but native
// mappings and Go slices are addressed with int. These helpers reject values
// that would silently truncate on the current platform.
package conv
