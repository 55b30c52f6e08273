//go:build !(linux && cgo && xrfdc)

package rfdc

func openXRFdc() (Driver, error) {
	return nil, ErrNotBuilt
}
