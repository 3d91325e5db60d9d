package group

import (
	"sort"
	"sync"
	"time"

	"github.com/BobKerns/better-future/pkg/future"
)

// Info is a snapshot of one live group, for introspection of outstanding
// work. Groups register themselves at construction and deregister on their
// own terminal transition.
type Info struct {
	ID      string
	Name    string
	Policy  Policy
	State   future.State
	Members int
	Created time.Time
}

type liveGroup interface {
	info() Info
}

var (
	registryMu sync.Mutex
	registry   = make(map[string]liveGroup)
)

func register(id string, g liveGroup) {
	registryMu.Lock()
	registry[id] = g
	registryMu.Unlock()
}

func deregister(id string) {
	registryMu.Lock()
	delete(registry, id)
	registryMu.Unlock()
}

// Live returns a snapshot of every group that has been created and has not
// yet settled, oldest first.
func Live() []Info {
	registryMu.Lock()
	groups := make([]liveGroup, 0, len(registry))
	for _, g := range registry {
		groups = append(groups, g)
	}
	registryMu.Unlock()

	infos := make([]Info, 0, len(groups))
	for _, g := range groups {
		infos = append(infos, g.info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Created.Equal(infos[j].Created) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].Created.Before(infos[j].Created)
	})
	return infos
}
