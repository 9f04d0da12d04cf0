package config

import (
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config file whenever it changes on disk and hands the
// fresh Config to onChange. It blocks until stop is closed; callers run it
// in a goroutine. Editors often replace files via rename, so Create events
// count as changes too.
func Watch(configPath string, onChange func(*Config), stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(configPath); err != nil {
		return err
	}
	log.Debugf("Watching config file: %s", configPath)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := LoadConfig(configPath)
			if err != nil {
				log.Warnf("Config change ignored, reload failed: %v", err)
				continue
			}
			log.Debugf("Config reloaded after %s", event.Op)
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnf("Config watcher error: %v", err)
		case <-stop:
			return nil
		}
	}
}
