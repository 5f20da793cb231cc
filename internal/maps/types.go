package maps

// LookupRequest is the address search typed by a dispatcher.
type LookupRequest struct {
	Query string `form:"q" validate:"required,min=3,max=200"`
}

// AddressSuggestion is a normalised candidate the dispatcher can copy into
// a job. Coordinates feed the route distance estimate.
type AddressSuggestion struct {
	Label        string  `json:"label"`
	Street       string  `json:"street"`
	HouseNumber  string  `json:"houseNumber"`
	Neighborhood string  `json:"neighborhood"`
	ZipCode      string  `json:"zipCode"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}

type nominatimAddress struct {
	Road          string `json:"road"`
	HouseNumber   string `json:"house_number"`
	Suburb        string `json:"suburb"`
	Neighbourhood string `json:"neighbourhood"`
	Postcode      string `json:"postcode"`
	City          string `json:"city"`
	Town          string `json:"town"`
	Village       string `json:"village"`
	Municipality  string `json:"municipality"`
	State         string `json:"state"`
}

// nominatimResponse mirrors the relevant parts of the OSM search payload.
type nominatimResponse struct {
	DisplayName string           `json:"display_name"`
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	Address     nominatimAddress `json:"address"`
}
