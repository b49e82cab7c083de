// Package watch wakes the scheduler when a new archived log lands in
// the archive destination, so a sealed generation is picked up without
// waiting out the idle sleep. The scheduler keeps polling either way;
// a missing or broken watcher only costs latency.
package watch

import (
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher owns one fsnotify watch on the archive destination
// directory. C carries at most one pending nudge.
type Watcher struct {
	w   *fsnotify.Watcher
	C   chan struct{}
	log *logrus.Entry
}

func New(dir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		w:   fw,
		C:   make(chan struct{}, 1),
		log: logrus.WithField("component", "watch"),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.w.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				select {
				case w.C <- struct{}{}:
				default:
				}
			}
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			w.log.Warnf("watching archive destination: %v", err)
		}
	}
}

func (w *Watcher) Close() error {
	return w.w.Close()
}
