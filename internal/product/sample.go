package product

import _ "embed"

//go:embed sample_product.toml
var sampleSpec []byte

// Sample returns an example specification document.
func Sample() []byte {
	return append([]byte(nil), sampleSpec...)
}
