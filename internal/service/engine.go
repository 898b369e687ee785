package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/neiam/apollos-kiosk/internal/config"
	"github.com/neiam/apollos-kiosk/internal/decode"
	"github.com/neiam/apollos-kiosk/internal/feed"
	"github.com/neiam/apollos-kiosk/internal/theme"
)

// Engine is the ingestion reconciler: the single consumer that drains the
// subscriber queues, decodes raw payloads into the content model, reconciles
// newly observed feed keys against the panel assignment layout, and applies
// theme sync updates. All mutable domain state (feed store, layout, current
// theme) is owned exclusively by the engine; producers only ever touch the
// mailboxes.
type Engine struct {
	cfg       *config.Config
	store     *feed.Store
	configs   ConfigStore
	snapshots SnapshotStore
	logger    *slog.Logger

	dataMail  *Mailbox[[]byte]
	themeMail *Mailbox[string]

	// decodeFailures counts per-prefix decode drops as a diagnostic for
	// schema drift between publisher and kiosk.
	decodeFailures map[string]int
}

// NewEngine creates the reconciler. snapshots may be nil to disable the
// archive. notify is the repaint wake signal fired whenever a producer
// enqueues work.
func NewEngine(cfg *config.Config, configs ConfigStore, snapshots SnapshotStore, notify func(), logger *slog.Logger) *Engine {
	return &Engine{
		cfg:            cfg,
		store:          feed.NewStore(),
		configs:        configs,
		snapshots:      snapshots,
		logger:         logger.With("component", "engine"),
		dataMail:       NewMailbox[[]byte](notify),
		themeMail:      NewMailbox[string](notify),
		decodeFailures: make(map[string]int),
	}
}

// DataMailbox is the inbound queue for raw data channel payloads.
func (e *Engine) DataMailbox() *Mailbox[[]byte] { return e.dataMail }

// ThemeMailbox is the inbound queue for raw theme names.
func (e *Engine) ThemeMailbox() *Mailbox[string] { return e.themeMail }

// Feeds exposes the feed store to the presentation layer. Read it only from
// the consumer goroutine.
func (e *Engine) Feeds() *feed.Store { return e.store }

// Config exposes the live configuration record. Same ownership rule as Feeds.
func (e *Engine) Config() *config.Config { return e.cfg }

// Theme resolves the current canonical theme identifier to display colors,
// falling back to the default theme for identifiers not in the catalog.
func (e *Engine) Theme() theme.Theme {
	return theme.Lookup(e.cfg.CurrentTheme)
}

// Drain empties both inbound queues without blocking. It is called once per
// frame tick by the consumer loop and returns the number of items processed
// so the caller can decide whether anything changed.
func (e *Engine) Drain(ctx context.Context) int {
	processed := 0
	for {
		name, ok := e.themeMail.TryPop()
		if !ok {
			break
		}
		e.HandleThemeName(ctx, name)
		processed++
	}
	for {
		payload, ok := e.dataMail.TryPop()
		if !ok {
			break
		}
		e.HandleDataMessage(ctx, payload)
		processed++
	}
	return processed
}

// HandleDataMessage processes one received data channel payload: a JSON
// object mapping feed keys to envelope or legacy values. Payloads that are
// not a JSON object are discarded wholesale. For each key that decodes, the
// key is registered into the unassigned list exactly once (with an immediate
// config save) and the feed store entry is replaced. Keys that fail to
// decode are dropped for this message only; the previous entry stands.
func (e *Engine) HandleDataMessage(ctx context.Context, payload []byte) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		e.logger.Warn("discarding payload that is not a JSON object", "error", err, "size", len(payload))
		return
	}

	for key, value := range raw {
		entry, ok := decode.Entry(key, value)
		if !ok {
			prefix := keyPrefix(key)
			e.decodeFailures[prefix]++
			e.logger.Debug("dropping undecodable key",
				"key", key,
				"prefix", prefix,
				"drops_for_prefix", e.decodeFailures[prefix],
			)
			continue
		}

		// Registration keys off the layout, not the feed store: an entry
		// restored from the snapshot archive must still register when the
		// broker republishes it live.
		if e.cfg.RegisterUnassigned(key) {
			e.logger.Info("registered new feed", "key", key)
			e.saveConfig()
		}

		e.store.Put(key, entry)

		if e.snapshots != nil {
			if err := e.snapshots.Upsert(ctx, key, entry); err != nil {
				e.logger.Warn("snapshot write failed", "key", key, "error", err)
			}
		}
	}
}

// HandleThemeName applies one raw theme name from the sync channel. Unknown
// names are logged and ignored; resolving to the already-current theme is a
// no-op with no persistence write.
func (e *Engine) HandleThemeName(_ context.Context, name string) {
	canonical, ok := theme.Resolve(name)
	if !ok {
		e.logger.Warn("unknown theme name, keeping current",
			"name", name,
			"current", e.cfg.CurrentTheme,
		)
		return
	}
	if canonical == e.cfg.CurrentTheme {
		e.logger.Debug("theme unchanged", "theme", canonical)
		return
	}

	e.cfg.CurrentTheme = canonical
	e.saveConfig()
	e.logger.Info("theme updated", "theme", canonical, "from", name)
}

// AssignFeed moves a feed key into a display panel and persists the layout.
func (e *Engine) AssignFeed(key string, panel int) {
	if e.cfg.Assign(key, panel) {
		e.saveConfig()
	}
}

// UnassignFeed moves a feed key from its panel back to the unassigned list
// and persists the layout.
func (e *Engine) UnassignFeed(key string) {
	if e.cfg.Unassign(key) {
		e.saveConfig()
	}
}

// RemoveFeed retires a feed key: it is dropped from the layout, the feed
// store and the snapshot archive. If the broker publishes the key again it
// registers as a brand-new unassigned feed.
func (e *Engine) RemoveFeed(ctx context.Context, key string) {
	if e.cfg.Remove(key) {
		e.saveConfig()
	}
	e.store.Delete(key)
	if e.snapshots != nil {
		if err := e.snapshots.Delete(ctx, key); err != nil {
			e.logger.Warn("snapshot delete failed", "key", key, "error", err)
		}
	}
	e.logger.Info("removed feed", "key", key)
}

// RestoreSnapshots preloads the feed store from the archive. Restored
// entries never register keys into the layout: only live messages do that,
// so registration stays exactly-once with respect to the broker.
func (e *Engine) RestoreSnapshots(ctx context.Context) {
	if e.snapshots == nil {
		return
	}
	entries, err := e.snapshots.All(ctx)
	if err != nil {
		e.logger.Warn("snapshot restore failed", "error", err)
		return
	}
	restored := 0
	for key, entry := range entries {
		if e.store.Has(key) {
			continue
		}
		e.store.Put(key, entry)
		restored++
	}
	if restored > 0 {
		e.logger.Info("restored feed snapshots", "count", restored)
	}
}

// DecodeFailures returns a copy of the per-prefix decode drop counters.
func (e *Engine) DecodeFailures() map[string]int {
	out := make(map[string]int, len(e.decodeFailures))
	for k, v := range e.decodeFailures {
		out[k] = v
	}
	return out
}

func (e *Engine) saveConfig() {
	if err := e.configs.Save(e.cfg); err != nil {
		// Persistence failure degrades to in-memory state; the kiosk
		// keeps displaying data.
		e.logger.Error("config save failed", "error", err)
	}
}

func keyPrefix(key string) string {
	if idx := strings.IndexByte(key, '-'); idx > 0 {
		return key[:idx]
	}
	return key
}
