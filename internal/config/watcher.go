package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// ChangeCallback is invoked after a successful reload, given the config
// that was active before and the one that just took effect. Returning
// an error rejects the reload: the previous config stays in effect.
type ChangeCallback func(oldConfig, newConfig *Config) error

// Watcher reloads the daemon config whenever its backing file changes,
// debouncing rapid successive writes (editors commonly rewrite a file
// in two or three syscalls) and rejecting a reload that fails
// validation or a registered callback.
type Watcher struct {
	loader *Loader
	log    *logrus.Entry

	fsw *fsnotify.Watcher

	mu        sync.RWMutex
	current   *Config
	callbacks []ChangeCallback

	reloadDelay time.Duration
	lastReload  time.Time

	stop chan struct{}
	once sync.Once
}

// NewWatcher starts watching configPath (the directory Loader searches)
// for changes. It performs the initial load before returning.
func NewWatcher(configPath string, log *logrus.Entry) (*Watcher, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	loader := NewLoader(configPath)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: creating file watcher: %w", err)
	}

	w := &Watcher{
		loader:      loader,
		log:         log,
		fsw:         fsw,
		current:     cfg,
		reloadDelay: time.Second,
		stop:        make(chan struct{}),
	}

	if used := loader.ConfigFileUsed(); used != "" {
		if err := fsw.Add(used); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("config: watching %s: %w", used, err)
		}
	}

	go w.watchLoop()
	return w, nil
}

// Current returns the most recently accepted configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback run after every accepted reload.
func (w *Watcher) OnChange(cb ChangeCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Stop ends the watch loop and releases the underlying file watcher.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.stop)
		w.fsw.Close()
	})
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounceReload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("config file watcher error")
		}
	}
}

func (w *Watcher) debounceReload() {
	w.mu.Lock()
	since := time.Since(w.lastReload)
	w.mu.Unlock()
	if since < w.reloadDelay {
		return
	}

	time.AfterFunc(w.reloadDelay, func() {
		if err := w.reload(); err != nil {
			w.log.WithError(err).Error("config reload failed, keeping previous configuration")
		}
	})
}

func (w *Watcher) reload() error {
	newCfg, err := w.loader.Load()
	if err != nil {
		return err
	}

	w.mu.RLock()
	oldCfg := w.current
	callbacks := append([]ChangeCallback(nil), w.callbacks...)
	w.mu.RUnlock()

	for _, cb := range callbacks {
		if err := cb(oldCfg, newCfg); err != nil {
			return fmt.Errorf("config change rejected by callback: %w", err)
		}
	}

	w.mu.Lock()
	w.current = newCfg
	w.lastReload = time.Now()
	w.mu.Unlock()

	w.log.Info("configuration reloaded")
	return nil
}
