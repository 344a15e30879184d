package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// Wizard collects snapshot options interactively.
type Wizard struct {
	defaultPath string
}

// NewWizard creates a wizard seeded with a default output path.
func NewWizard(defaultPath string) *Wizard {
	if defaultPath == "" {
		defaultPath = "trackmap.svg"
	}
	return &Wizard{defaultPath: defaultPath}
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm applies the shared theme and switches to accessible mode when
// stdin is not a TTY.
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// Run prompts for format, path, and title. The returned Options are
// validated and ready for Save.
func (w *Wizard) Run() (Options, error) {
	opts := Options{
		Path:   w.defaultPath,
		Format: "svg",
	}

	form := newForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Snapshot format").
				Options(
					huh.NewOption("SVG (vector, small)", "svg"),
					huh.NewOption("PNG (raster)", "png"),
				).
				Value(&opts.Format),
			huh.NewInput().
				Title("Output path").
				Value(&opts.Path).
				Validate(ValidatePath),
			huh.NewInput().
				Title("Title (optional)").
				Value(&opts.Title),
		),
	)

	if err := form.Run(); err != nil {
		return Options{}, fmt.Errorf("export wizard: %w", err)
	}

	opts.Path = EnsureExtension(strings.TrimSpace(opts.Path), opts.Format)
	return opts, nil
}

// ValidatePath rejects empty and directory-looking paths.
func ValidatePath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is required")
	}
	if strings.HasSuffix(path, "/") {
		return fmt.Errorf("path must name a file, not a directory")
	}
	return nil
}
