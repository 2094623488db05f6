package api

// Identity endpoints, relative to the API base URL.
const (
	PathSignIn  = "/auth/signin"
	PathSignUp  = "/auth/signup"
	PathSignOut = "/auth/logout"
	PathRefresh = "/auth/refresh-token"
	PathProfile = "/auth/profile"
)

// Domain collections.
const (
	PathHotels    = "/hotels"
	PathRooms     = "/rooms"
	PathBuses     = "/buses"
	PathRoutes    = "/routes"
	PathSchedules = "/schedules"
	PathBookings  = "/bookings"
)

// Endpoints lets deployments relocate the identity endpoints.
type Endpoints struct {
	SignIn  string
	SignUp  string
	SignOut string
	Refresh string
	Profile string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		SignIn:  PathSignIn,
		SignUp:  PathSignUp,
		SignOut: PathSignOut,
		Refresh: PathRefresh,
		Profile: PathProfile,
	}
}
