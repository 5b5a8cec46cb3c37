// Package assets provides the HTML template and stylesheet for the portfolio page.
//
// # Loader Architecture
//
//	Loader (interface)
//	    │
//	    ├── EmbeddedLoader    - loads from go:embed filesystem (built-in page)
//	    ├── FilesystemLoader  - loads from a custom directory on disk
//	    └── Resolver          - combines both with custom-first fallback
//
// The Resolver is what the renderer uses: a custom directory may override the
// template, the stylesheet, or both, and anything it lacks comes from the
// embedded defaults.
//
// # Directory Structure
//
//	{basePath}/
//	├── styles/
//	│   └── {name}.css       # e.g. site.css
//	└── templates/
//	    └── {name}.html      # e.g. index.html
//
// # Security
//
// Asset names are validated to prevent path traversal. FilesystemLoader
// resolves symlinks and verifies paths stay within basePath.
package assets
