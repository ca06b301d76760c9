package antispam

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/shirkavand/imperator/internal/config"
)

type floodWindow struct {
	text  string
	count int
	last  time.Time
}

// FloodDetector tracks per-(chat,user) runs of identical messages. Windows
// live in a TTL-bounded LRU so quiet members cost nothing and the map never
// grows past the configured capacity.
type FloodDetector struct {
	windows *expirable.LRU[string, floodWindow]
	cfg     config.AntispamConfig
	now     func() time.Time
}

func NewFloodDetector(cfg config.AntispamConfig) *FloodDetector {
	return &FloodDetector{
		windows: expirable.NewLRU[string, floodWindow](cfg.WindowCapacity, nil, cfg.FloodWindow),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Observe records one message and reports whether it completes a flood
// burst. A message extends the run when it repeats the previous message
// within the window of that previous message; the gap is measured between
// consecutive messages, not from the start of the run. The run resets on a
// hit so a single burst fires once, and any different message starts a
// fresh run.
func (d *FloodDetector) Observe(chatID, userID int64, text string) bool {
	key := fmt.Sprintf("%d:%d", chatID, userID)
	text = strings.TrimSpace(text)
	now := d.now()

	w, ok := d.windows.Get(key)
	if !ok || w.text != text || now.Sub(w.last) > d.cfg.FloodWindow {
		d.windows.Add(key, floodWindow{text: text, count: 1, last: now})
		return false
	}

	w.count++
	w.last = now
	if w.count >= d.cfg.FloodThreshold {
		d.windows.Remove(key)
		return true
	}
	d.windows.Add(key, w)
	return false
}
