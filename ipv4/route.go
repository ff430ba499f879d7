package ipv4

import (
	"fmt"
	"sort"
)

// Route directs traffic matching Destination/Mask out of an interface.
// A zero Gateway means the destination is directly connected and the
// packet's own destination is the next hop.
type Route struct {
	Destination Addr
	Mask        Addr
	Gateway     Addr
	Interface   int
}

// Matches reports whether ip falls under the route's prefix.
func (r Route) Matches(ip Addr) bool { return ip&r.Mask == r.Destination }

func (r Route) String() string {
	return fmt.Sprintf("%s %s %s %d", r.Destination, r.Mask, r.Gateway, r.Interface)
}

// RouteTable keeps routes ordered longest prefix first. The zero value
// is an empty table ready for use.
type RouteTable struct {
	routes []Route
}

// Add inserts a route, keeping the table sorted by raw mask value
// descending so lookups hit the most specific prefix first.
func (t *RouteTable) Add(r Route) {
	t.routes = append(t.routes, r)
	sort.SliceStable(t.routes, func(i, j int) bool {
		return t.routes[i].Mask > t.routes[j].Mask
	})
}

// Remove deletes the first route equal to r, if present.
func (t *RouteTable) Remove(r Route) {
	for i := range t.routes {
		if t.routes[i] == r {
			t.routes = append(t.routes[:i], t.routes[i+1:]...)
			return
		}
	}
}

// Reset clears the table.
func (t *RouteTable) Reset() { t.routes = t.routes[:0] }

// Len returns the number of routes.
func (t *RouteTable) Len() int { return len(t.routes) }

// Routes returns the routes in lookup order.
func (t *RouteTable) Routes() []Route { return t.routes }

// Lookup returns the first route matching ip, which by construction
// has the longest matching prefix.
func (t *RouteTable) Lookup(ip Addr) (Route, bool) {
	for _, r := range t.routes {
		if r.Matches(ip) {
			return r, true
		}
	}
	return Route{}, false
}
