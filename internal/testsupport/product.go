package testsupport

import (
	"testing"

	"demoforge/internal/product"
)

// SampleProduct parses the bundled sample product specification.
func SampleProduct(t testing.TB) *product.Spec {
	t.Helper()

	spec, err := product.Parse(product.Sample())
	if err != nil {
		t.Fatalf("product.Parse(sample): %v", err)
	}
	return spec
}
