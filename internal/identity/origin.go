package identity

import "fmt"

// Office is the fixed egress address and country label of one office
// location.
type Office struct {
	IP      string
	Country string
}

// Resolver maps office locations to network origins. Resolution never
// fails: unmapped locations fall back to the default address.
type Resolver struct {
	offices   map[string]Office
	defaultIP string
}

// NewResolver creates a Resolver over the office map.
func NewResolver(offices map[string]Office, defaultIP string) *Resolver {
	return &Resolver{offices: offices, defaultIP: defaultIP}
}

// Resolve returns the egress address for an office location, or the
// default address when the location is unmapped.
func (r *Resolver) Resolve(location string) string {
	if office, ok := r.offices[location]; ok {
		return office.IP
	}
	return r.defaultIP
}

// DisplayLocation returns the "City, Country" label shown in sign-in
// rows. Unmapped locations keep the city name with no country suffix.
func (r *Resolver) DisplayLocation(location string) string {
	if office, ok := r.offices[location]; ok {
		return fmt.Sprintf("%s, %s", location, office.Country)
	}
	return location
}
