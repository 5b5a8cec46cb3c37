// Package portfolios builds a static portfolio page from a directory of YAML
// project descriptions.
//
// # Quick Start
//
//	b, err := portfolios.NewBuilder(
//	    portfolios.WithSourceDir("portfolios"),
//	    portfolios.WithOutputDir("dist"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close()
//
//	report, err := b.Build(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d projects, %d failed\n", len(report.Succeeded()), len(report.Failed()))
//
// # Build Pipeline
//
//  1. Discovery of *.yaml and *.yml sources, sorted by name
//  2. Per-source job: parse one YAML document, validate URLs, capture a
//     screenshot of the demo URL with headless Chrome
//  3. Join: every job settles before anything is rendered
//  4. Render the successful projects once with html/template, in discovery order
//  5. Persist the page to the output directory
//
// Failed projects are left out of the page and reported in the Report.
//
// # Screenshot Engines
//
// Two engines implement Capturer: go-rod (default) and chromedp. Both launch a
// local Chrome; set ROD_BROWSER_BIN or WithCaptureOptions to use a
// pre-installed binary. Captures run on a CapturerPool that bounds how many
// browsers are alive at once.
package portfolios
