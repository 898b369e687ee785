package domain

// PanelCount is the number of display panels.
const PanelCount = 3

// Layout is the panel assignment ledger: three ordered panel key lists plus
// an insertion-ordered unassigned list. A feed key lives in at most one of
// the four lists at any time; every mutator preserves that invariant.
// Membership is independent of whether the key currently has live data.
type Layout struct {
	Panels     [][]string `yaml:"panels" json:"panels"`
	Unassigned []string   `yaml:"unassigned" json:"unassigned"`
}

// NewLayout returns an empty layout with all three panels allocated.
func NewLayout() Layout {
	return Layout{Panels: make([][]string, PanelCount)}
}

// Normalize pads or truncates the panel list to exactly PanelCount entries.
// Call after unmarshaling from an external source.
func (l *Layout) Normalize() {
	for len(l.Panels) < PanelCount {
		l.Panels = append(l.Panels, nil)
	}
	l.Panels = l.Panels[:PanelCount]
}

// Contains reports whether key is present in any panel or in the
// unassigned list.
func (l *Layout) Contains(key string) bool {
	for _, panel := range l.Panels {
		if indexOf(panel, key) >= 0 {
			return true
		}
	}
	return indexOf(l.Unassigned, key) >= 0
}

// RegisterUnassigned appends key to the unassigned list unless it is already
// present somewhere in the layout. Reports whether the layout changed.
func (l *Layout) RegisterUnassigned(key string) bool {
	if l.Contains(key) {
		return false
	}
	l.Unassigned = append(l.Unassigned, key)
	return true
}

// Assign moves key into the given panel, removing it from wherever it
// currently lives. Reports whether the layout changed.
func (l *Layout) Assign(key string, panel int) bool {
	if panel < 0 || panel >= PanelCount {
		return false
	}
	if idx := indexOf(l.Panels[panel], key); idx >= 0 {
		return false
	}
	l.Remove(key)
	l.Panels[panel] = append(l.Panels[panel], key)
	return true
}

// Unassign moves key from its panel back to the unassigned list. Keys not
// currently in a panel are left alone.
func (l *Layout) Unassign(key string) bool {
	for i, panel := range l.Panels {
		if idx := indexOf(panel, key); idx >= 0 {
			l.Panels[i] = removeAt(panel, idx)
			l.Unassigned = append(l.Unassigned, key)
			return true
		}
	}
	return false
}

// Keys returns every key in the layout, panels first, in list order.
func (l *Layout) Keys() []string {
	var keys []string
	for _, panel := range l.Panels {
		keys = append(keys, panel...)
	}
	keys = append(keys, l.Unassigned...)
	return keys
}

// Remove drops key from the layout entirely, wherever it lives. Reports
// whether the layout changed.
func (l *Layout) Remove(key string) bool {
	for i, panel := range l.Panels {
		if idx := indexOf(panel, key); idx >= 0 {
			l.Panels[i] = removeAt(panel, idx)
			return true
		}
	}
	if idx := indexOf(l.Unassigned, key); idx >= 0 {
		l.Unassigned = removeAt(l.Unassigned, idx)
		return true
	}
	return false
}

func indexOf(list []string, key string) int {
	for i, k := range list {
		if k == key {
			return i
		}
	}
	return -1
}

func removeAt(list []string, idx int) []string {
	return append(list[:idx], list[idx+1:]...)
}
