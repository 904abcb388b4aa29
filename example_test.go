package pipegraph_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/pipegraph"
	"github.com/aretw0/pipegraph/pkg/adapters/memory"
	"github.com/aretw0/pipegraph/pkg/domain"
)

func catalog() *memory.Catalog {
	c, err := memory.NewCatalog(
		domain.ProcessSpec{Module: "fsl.BET", Params: []domain.ParamSpec{
			{Name: "in_file", Type: "file"},
			{Name: "out_file", Type: "file", Output: true},
		}},
		domain.ProcessSpec{Module: "spm.Smooth", Params: []domain.ParamSpec{
			{Name: "in_file", Type: "file"},
			{Name: "fwhm", Type: "[float]", Optional: true},
			{Name: "smoothed", Type: "file", Output: true},
		}},
	)
	if err != nil {
		log.Fatal(err)
	}
	return c
}

// ExampleParse shows how disabling a node deactivates what depends on it.
func ExampleParse() {
	doc := []byte(`version: "2.0"
name: preproc
entries:
  - process: {name: bet, module: fsl.BET}
  - process: {name: smooth, module: spm.Smooth, set: [{name: fwhm, value: [6, 6, 6]}]}
  - link: {source: t1, dest: bet.in_file}
  - link: {source: bet.out_file, dest: smooth.in_file}
  - link: {source: smooth.smoothed, dest: result}
`)
	ctx := context.Background()
	g, err := pipegraph.Parse(ctx, doc, pipegraph.WithCatalog(catalog()))
	if err != nil {
		log.Fatal(err)
	}

	state, err := g.ActivationState()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("smooth active:", state["smooth"].Activated)

	if err := g.SetNodeEnabled("bet", false); err != nil {
		log.Fatal(err)
	}
	state, err = g.ActivationState()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("smooth active:", state["smooth"].Activated)
	fmt.Println("result active:", state[""].Plugs["result"])

	// Output:
	// smooth active: true
	// smooth active: false
	// result active: false
}

// ExampleNewBuilder builds a pipeline with a switch and routes it.
func ExampleNewBuilder() {
	ctx := context.Background()
	b, err := pipegraph.NewBuilder("choose", pipegraph.WithCatalog(catalog()))
	if err != nil {
		log.Fatal(err)
	}
	steps := []error{
		b.AddProcess(ctx, "bet", "fsl.BET", nil),
		b.AddNode(domain.KindSwitch, "method", domain.SwitchSpec{
			Alternatives: []string{"brain", "raw"},
			Outputs:      []string{"image"},
		}),
		b.Link("t1 -> bet.in_file"),
		b.Link("t1 -> method.raw_switch_image"),
		b.Link("bet.out_file -> method.brain_switch_image"),
		b.Link("method.image -> result"),
	}
	for _, err := range steps {
		if err != nil {
			log.Fatal(err)
		}
	}
	g, err := b.Finish()
	if err != nil {
		log.Fatal(err)
	}

	_ = g.SetNodeEnabled("bet", false)
	for _, alt := range []string{"brain", "raw"} {
		if err := g.SetSwitchSelection("method", alt); err != nil {
			log.Fatal(err)
		}
		state, _ := g.ActivationState()
		fmt.Printf("%s: method active=%v\n", alt, state["method"].Activated)
	}

	// Output:
	// brain: method active=false
	// raw: method active=true
}
