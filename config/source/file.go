package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/skekre98/observers/config"
)

// FileSource loads application.yaml (or .yml) from BasePath and, when
// Profile is set, overlays application.{Profile}.yaml on top of it. Top-level
// keys of the overlay replace those of the base file.
//
//	configs/
//	  application.yaml
//	  application.prod.yaml
type FileSource struct {
	BasePath string
	// Profile names an optional overlay; a missing overlay file is ignored.
	Profile string
	// Debounce coalesces bursts of file events during Watch. Defaults to
	// 100ms.
	Debounce time.Duration
}

func (f *FileSource) Name() string { return "file" }

// Load returns os.ErrNotExist if the base file is missing.
func (f *FileSource) Load(ctx context.Context) (map[string]any, error) {
	baseFile := findYAMLFile(f.BasePath, "application")
	if baseFile == "" {
		return nil, os.ErrNotExist
	}

	data := map[string]any{}
	if err := readYAML(baseFile, data); err != nil {
		return nil, fmt.Errorf("read %s: %w", baseFile, err)
	}

	if f.Profile != "" {
		if profileFile := findYAMLFile(f.BasePath, "application."+f.Profile); profileFile != "" {
			if err := readYAML(profileFile, data); err != nil {
				return nil, fmt.Errorf("read %s: %w", profileFile, err)
			}
		}
	}

	return data, nil
}

// Watch watches BasePath with fsnotify and sends an Event on ch whenever an
// application*.yaml/yml file is written, created, renamed or removed. It
// blocks until ctx is done.
func (f *FileSource) Watch(ctx context.Context, ch chan<- config.Event) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	dir, err := filepath.Abs(f.BasePath)
	if err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	debounce := f.Debounce
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !f.relevant(ev.Name) {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", dir, err)
		case <-timer.C:
			select {
			case ch <- config.Event{}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (f *FileSource) relevant(path string) bool {
	base := filepath.Base(path)
	for _, name := range []string{"application", "application." + f.Profile} {
		if name == "application." {
			continue
		}
		if base == name+".yaml" || base == name+".yml" {
			return true
		}
	}
	return false
}

// findYAMLFile looks for a file with either .yaml or .yml extension
func findYAMLFile(dir, basename string) string {
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(dir, basename+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func readYAML(path string, out map[string]any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, &out)
}
