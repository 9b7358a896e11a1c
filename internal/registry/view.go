package registry

import (
	"context"

	"github.com/wolkoffmikhail/dds-analytics/internal/cycle"
)

// View binds one registry definition to its fetch-cycle controller. The
// controller guarantees that overlapping refreshes publish only the
// newest-issued cycle and applies the page-reset policy on filter changes.
type View struct {
	Def  Definition
	ctrl *cycle.Controller[Params, Snapshot]
}

// NewView wires a controller around the service for one definition.
func NewView(def Definition, svc *Service) *View {
	run := func(ctx context.Context, p Params) (Snapshot, error) {
		return svc.FetchPage(ctx, def, p)
	}
	return &View{Def: def, ctrl: cycle.New(run, def.Normalize)}
}

// Refresh runs one fetch cycle and returns the published snapshot.
func (v *View) Refresh(ctx context.Context, p Params) (Snapshot, bool, error) {
	return v.ctrl.Refresh(ctx, p)
}

// Current returns the published snapshot without triggering a cycle.
func (v *View) Current() (Snapshot, bool, bool) {
	return v.ctrl.Current()
}

// Views builds one View per definition, keyed by registry name.
func Views(svc *Service, defs []Definition) map[string]*View {
	views := make(map[string]*View, len(defs))
	for _, def := range defs {
		views[def.Name] = NewView(def, svc)
	}
	return views
}
