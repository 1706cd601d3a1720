// Package pointer helps with optional fields, such as tranche caps.
package pointer

// Uint64 returns a pointer to v.
func Uint64(v uint64) *uint64 {
	return &v
}

// Uint64OrDefault dereferences p, or returns def when p is nil.
func Uint64OrDefault(p *uint64, def uint64) uint64 {
	if p == nil {
		return def
	}
	return *p
}
