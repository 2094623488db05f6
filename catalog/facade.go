package catalog

import (
	"sort"

	"github.com/travelbook/admin-console/api"
)

// Facade groups the collections the admin screens manage.
type Facade struct {
	Hotels    *Resource[Record]
	Rooms     *Resource[Record]
	Buses     *Resource[Record]
	Routes    *Resource[Record]
	Schedules *Resource[Record]
	Bookings  *Resource[Record]

	byName map[string]*Resource[Record]
}

// NewFacade builds the facade over client. Use a client configured with
// SetAuthToken so every call carries the signed-in user's token.
func NewFacade(client Requester) *Facade {
	f := &Facade{
		Hotels:    NewResource[Record](client, api.PathHotels),
		Rooms:     NewResource[Record](client, api.PathRooms),
		Buses:     NewResource[Record](client, api.PathBuses),
		Routes:    NewResource[Record](client, api.PathRoutes),
		Schedules: NewResource[Record](client, api.PathSchedules),
		Bookings:  NewResource[Record](client, api.PathBookings),
	}
	f.byName = map[string]*Resource[Record]{
		"hotels":    f.Hotels,
		"rooms":     f.Rooms,
		"buses":     f.Buses,
		"routes":    f.Routes,
		"schedules": f.Schedules,
		"bookings":  f.Bookings,
	}
	return f
}

// Resource looks up a collection by name ("hotels", "buses", ...).
func (f *Facade) Resource(name string) (*Resource[Record], bool) {
	r, ok := f.byName[name]
	return r, ok
}

// Names lists the collection names in sorted order.
func (f *Facade) Names() []string {
	names := make([]string, 0, len(f.byName))
	for name := range f.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
