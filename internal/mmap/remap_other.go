//go:build !linux

package mmap

// osRemap maps a fresh region, copies the preserved prefix and releases the
// old region. The old region survives if the new mapping cannot be created.
func osRemap(data []byte, unmap func([]byte) error, newSize int) ([]byte, func([]byte) error, error) {
	fresh, unmapFresh, err := osMapAnon(newSize)
	if err != nil {
		return nil, nil, err
	}
	copy(fresh, data)
	if unmap != nil {
		if err := unmap(data); err != nil {
			_ = unmapFresh(fresh)
			return nil, nil, err
		}
	}
	return fresh, unmapFresh, nil
}
