package alerts

import (
	"sort"

	"github.com/benmeehan/route-sentinel/internal/models"
	cmap "github.com/orcaman/concurrent-map/v2"
)

// Visibility is the per-type hazard filter toggled by the user. Types are visible unless
// explicitly hidden.
type Visibility struct {
	hidden cmap.ConcurrentMap[string, struct{}]
}

// NewVisibility returns a table with the given types hidden.
func NewVisibility(hidden ...models.AlertType) *Visibility {
	v := &Visibility{hidden: cmap.New[struct{}]()}
	for _, t := range hidden {
		v.hidden.Set(string(t), struct{}{})
	}
	return v
}

// SetVisible shows or hides a type and reports whether the table changed.
func (v *Visibility) SetVisible(t models.AlertType, visible bool) bool {
	if visible {
		return v.hidden.RemoveCb(string(t), func(_ string, _ struct{}, exists bool) bool { return exists })
	}
	return v.hidden.SetIfAbsent(string(t), struct{}{})
}

// Visible reports whether alerts of type t are shown.
func (v *Visibility) Visible(t models.AlertType) bool {
	return !v.hidden.Has(string(t))
}

// Hidden returns the hidden types in name order.
func (v *Visibility) Hidden() []models.AlertType {
	keys := v.hidden.Keys()
	sort.Strings(keys)
	out := make([]models.AlertType, len(keys))
	for i, k := range keys {
		out[i] = models.AlertType(k)
	}
	return out
}
