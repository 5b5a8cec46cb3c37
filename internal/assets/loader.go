package assets

// Default asset names used by the page renderer.
const (
	DefaultTemplateName = "index"
	DefaultStyleName    = "site"
)

// Loader defines the contract for loading page templates and styles.
type Loader interface {
	// LoadStyle loads a CSS style by name (without .css extension).
	// Returns ErrStyleNotFound if the style doesn't exist.
	LoadStyle(name string) (string, error)

	// LoadTemplate loads an HTML template by name (without .html extension).
	// Returns ErrTemplateNotFound if the template doesn't exist.
	LoadTemplate(name string) (string, error)
}
