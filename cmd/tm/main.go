// Command tm is the trackmap terminal viewer. It loads a track library
// from JSONL or SQLite, opens the interactive map, and can export PNG or
// SVG snapshots headlessly.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/vanderheijden86/trackmap/internal/datasource"
	"github.com/vanderheijden86/trackmap/pkg/config"
	"github.com/vanderheijden86/trackmap/pkg/engine"
	"github.com/vanderheijden86/trackmap/pkg/export"
	"github.com/vanderheijden86/trackmap/pkg/model"
	"github.com/vanderheijden86/trackmap/pkg/ui"
	"github.com/vanderheijden86/trackmap/pkg/version"
)

func main() {
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	themeFlag := flag.String("theme", "", "Theme override: dark or light")
	exportPath := flag.String("export", "", "Write a snapshot to the given path and exit (no TUI)")
	exportTitle := flag.String("title", "", "Snapshot title (with --export or --wizard)")
	wizardFlag := flag.Bool("wizard", false, "Interactive snapshot export and exit (no TUI)")
	noWatch := flag.Bool("no-watch", false, "Disable live reload of the library file")
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fmt.Println("Usage: tm [options] [library]")
		fmt.Println("\nAn interactive map of a track library.")
		fmt.Println("The library argument is a .jsonl or SQLite file, or a directory")
		fmt.Println("to search; the freshest valid source wins. Defaults to the")
		fmt.Println("current directory.")
		fmt.Println()
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("tm %s\n", version.Version)
		os.Exit(0)
	}

	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		// Non-fatal: continue with defaults.
		cfg = config.DefaultConfig()
	}
	if *themeFlag != "" {
		cfg.UI.Theme = *themeFlag
	}

	graph, libName, libPath, err := loadLibrary(cfg, flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading track library: %v\n", err)
		fmt.Fprintln(os.Stderr, "Point tm at a .jsonl or SQLite library file, or a directory containing one.")
		os.Exit(1)
	}
	if graph.Len() == 0 {
		fmt.Println("The library is empty. Add some tracks first.")
		os.Exit(0)
	}

	if *exportPath != "" || *wizardFlag {
		if err := exportSnapshot(cfg, graph, *exportPath, *exportTitle, *wizardFlag); err != nil {
			fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "tm needs a terminal; use --export for headless snapshots.")
		os.Exit(1)
	}

	if *noWatch {
		libPath = ""
	}
	m := ui.New(ui.Options{
		Config:      cfg,
		Graph:       graph,
		LibraryName: libName,
		LibraryPath: libPath,
	})

	if err := runTUIProgram(m); err != nil {
		fmt.Fprintf(os.Stderr, "Error running trackmap: %v\n", err)
		os.Exit(1)
	}
}

// loadLibrary resolves the positional argument into a graph. The argument
// may name a library registered in config; otherwise a directory (or no
// argument) triggers source discovery and a file loads directly.
func loadLibrary(cfg config.Config, arg string) (*model.Graph, string, string, error) {
	ctx := context.Background()
	if arg == "" {
		arg = "."
	}

	name := ""
	if lib := cfg.FindLibrary(arg); lib != nil {
		name = lib.Name
		arg = lib.ResolvedPath()
	}

	info, err := os.Stat(arg)
	if err != nil {
		return nil, "", "", err
	}

	if info.IsDir() {
		g, src, err := datasource.LoadBest(ctx, arg)
		if err != nil {
			return nil, "", "", err
		}
		if name == "" {
			name = src.String()
		}
		return g, name, src.Path, nil
	}

	g, err := datasource.LoadGraph(ctx, arg)
	if err != nil {
		return nil, "", "", err
	}
	if name == "" {
		name = info.Name()
	}
	return g, name, arg, nil
}

// exportSnapshot renders one frame at a fixed headless resolution and
// writes it out, prompting through the wizard when asked.
func exportSnapshot(cfg config.Config, g *model.Graph, path, title string, wizard bool) error {
	opts := export.Options{Path: path, Title: title}
	if wizard {
		var err error
		opts, err = export.NewWizard(path).Run()
		if err != nil {
			return err
		}
		if opts.Title == "" {
			opts.Title = title
		}
	}

	theme := ui.ThemeByName(cfg.UI.Theme, lipgloss.DefaultRenderer())
	eng := engine.New(engine.Options{
		ScreenW: 1600,
		ScreenH: 1200,
		ZoomMin: cfg.Viewport.ZoomMin,
		ZoomMax: cfg.Viewport.ZoomMax,
		Palette: theme.Palette(),
	}, engine.Callbacks{})
	eng.LoadGraph(g)
	frame := eng.Step(time.Now())

	scene := export.FromFrame(frame, eng.Viewport(), g)
	if opts.Background == "" {
		opts.Background = theme.Background
	}
	if err := export.Save(scene, opts); err != nil {
		return err
	}
	fmt.Printf("Snapshot written to %s\n", opts.Path)
	return nil
}

func runTUIProgram(m *ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set TM_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("TM_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	_, err := p.Run()
	if err != nil && (errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted)) {
		return nil
	}
	return err
}
