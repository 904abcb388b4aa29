/*
Package dsl provides the GraphBuilder, the construction façade of a pipeline.

Every call validates immediately and returns the specific error; activation
is only computed when the finished graph is queried.

	b := dsl.New("preprocessing", dsl.WithCatalog(catalog))
	_ = b.AddProcess(ctx, "smooth", "spm.Smooth", []domain.Override{{Name: "fwhm", Raw: "[6, 6, 6]"}})
	_ = b.AddProcess(ctx, "norm", "spm.Normalize", nil)
	_ = b.AddLink("smooth.out_file", "norm.in_file")
	_ = b.AddLink("input_image", "smooth.in_file") // implicit export of input_image
	g, err := b.Finish()

Process modules are resolved through a ports.Catalog. Catalog entries that
describe a nested pipeline need a resolver (WithResolver), which pkg/codec
installs.
*/
package dsl
