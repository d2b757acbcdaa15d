package core

import (
	"log/slog"

	"github.com/emberlink/ember/state"
)

// RouteTable maps destination ids to next hops. Entries are learned from
// observed traffic, persisted on every write and only ever overwritten,
// never expired. A missing entry means "route via parent".
type RouteTable struct {
	routes map[uint8]uint8
	store  state.Store
	log    *slog.Logger
}

func NewRouteTable(store state.Store, log *slog.Logger) *RouteTable {
	rt := &RouteTable{
		routes: make(map[uint8]uint8),
		store:  store,
		log:    log,
	}
	for dest := uint8(1); dest < state.BroadcastAddress; dest++ {
		next, ok, err := store.LoadRoute(dest)
		if err != nil {
			log.Warn("route load failed", "dest", dest, "error", err)
			continue
		}
		if ok {
			rt.routes[dest] = next
		}
	}
	return rt
}

// Lookup returns the stored next hop for dest, falling back to parent.
func (rt *RouteTable) Lookup(dest, parent uint8) (next uint8, known bool) {
	if next, ok := rt.routes[dest]; ok {
		return next, true
	}
	return parent, false
}

// Learn records that frames from sender arrive via lastHop. Broadcast never
// appears on either side, and a node does not learn a route to itself.
func (rt *RouteTable) Learn(sender, lastHop, self uint8) {
	if sender == state.BroadcastAddress || lastHop == state.BroadcastAddress || sender == self {
		return
	}
	if cur, ok := rt.routes[sender]; ok && cur == lastHop {
		return
	}
	rt.routes[sender] = lastHop
	if err := rt.store.StoreRoute(sender, lastHop); err != nil {
		rt.log.Warn("route store failed", "dest", sender, "next", lastHop, "error", err)
	}
}

func (rt *RouteTable) Clear() error {
	rt.routes = make(map[uint8]uint8)
	return rt.store.ClearRoutes()
}

func (rt *RouteTable) Len() int { return len(rt.routes) }
