//go:build !cgo || !irdirectsdk

package optris

// Library returns ErrNotBuilt; this binary was built without the Direct-SDK.
// Build with cgo enabled and -tags irdirectsdk to link it, or use NewMock.
func Library() (Native, error) {
	return nil, ErrNotBuilt
}
