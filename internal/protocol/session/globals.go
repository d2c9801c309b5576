package session

import "sort"

// Global is one capability advertised by the compositor.
type Global struct {
	Name      uint32 `json:"name"`
	Interface string `json:"interface"`
	Version   uint32 `json:"version"`
}

// GlobalEntry is a tracked global; removed entries are kept but flagged.
type GlobalEntry struct {
	Global
	Seq     uint64 `json:"seq"`
	Removed bool   `json:"removed"`
}

// GlobalTable tracks advertised globals keyed by name.
type GlobalTable struct {
	seq   uint64
	items map[uint32]GlobalEntry
}

func NewGlobalTable() *GlobalTable {
	return &GlobalTable{items: make(map[uint32]GlobalEntry)}
}

// Add records g. A name reused after removal replaces the old entry.
func (t *GlobalTable) Add(g Global) {
	t.seq++
	t.items[g.Name] = GlobalEntry{Global: g, Seq: t.seq}
}

// Remove flags the live global with that name as removed.
func (t *GlobalTable) Remove(name uint32) (Global, bool) {
	item, ok := t.items[name]
	if !ok || item.Removed {
		return Global{}, false
	}
	item.Removed = true
	t.items[name] = item
	return item.Global, true
}

func (t *GlobalTable) Get(name uint32) (GlobalEntry, bool) {
	item, ok := t.items[name]
	return item, ok
}

// Live returns globals not removed, in advertisement order.
func (t *GlobalTable) Live() []Global {
	entries := t.List()
	out := make([]Global, 0, len(entries))
	for _, e := range entries {
		if !e.Removed {
			out = append(out, e.Global)
		}
	}
	return out
}

// List returns every tracked entry in advertisement order.
func (t *GlobalTable) List() []GlobalEntry {
	out := make([]GlobalEntry, 0, len(t.items))
	for _, item := range t.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Seq < out[j].Seq
	})
	return out
}
