package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var ErrNotFound = errors.New("lead not found")

// Source lists every lead the backend knows about.
type Source interface {
	ListLeads(ctx context.Context) (json.RawMessage, error)
}

// Directory is the console's read-only copy of the lead set, in backend order.
type Directory struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Lead
}

func NewDirectory() *Directory {
	return &Directory{byID: map[string]Lead{}}
}

// Load replaces the directory with the backend's current lead list.
func (d *Directory) Load(ctx context.Context, src Source) error {
	raw, err := src.ListLeads(ctx)
	if err != nil {
		return fmt.Errorf("leads: list: %w", err)
	}
	list, err := Normalize(raw)
	if err != nil {
		return err
	}
	d.Replace(list)
	return nil
}

func (d *Directory) Replace(list []Lead) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.order = nil
	d.byID = make(map[string]Lead, len(list))
	for _, l := range list {
		if _, dup := d.byID[l.ID]; !dup {
			d.order = append(d.order, l.ID)
		}
		d.byID[l.ID] = l
	}
}

// Add merges freshly imported leads in front of the existing ones.
func (d *Directory) Add(list []Lead) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fresh := make(map[string]struct{}, len(list))
	order := make([]string, 0, len(list)+len(d.order))
	for _, l := range list {
		if _, dup := fresh[l.ID]; !dup {
			fresh[l.ID] = struct{}{}
			order = append(order, l.ID)
		}
		d.byID[l.ID] = l
	}
	for _, id := range d.order {
		if _, ok := fresh[id]; !ok {
			order = append(order, id)
		}
	}
	d.order = order
}

func (d *Directory) Get(id string) (Lead, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.byID[id]
	if !ok {
		return Lead{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return l, nil
}

func (d *Directory) List() []Lead {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Lead, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.byID[id])
	}
	return out
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.order)
}
