package models

// AvailableSlot describes one bookable opening returned by an availability
// query. PriceID and PlaygroundID are what the reservation call needs to
// secure the slot; the rest is display data.
type AvailableSlot struct {
	PlaygroundID string `json:"playground_id"`
	Playground   string `json:"playground"`
	Date         string `json:"date"`
	DayOfWeek    int    `json:"day_of_week"`
	StartAt      string `json:"start_at"`
	EndAt        string `json:"end_at"`
	Duration     int    `json:"duration"`
	PriceID      string `json:"price_id"`
}

// RemoteBooking is a confirmed reservation as listed by a club site.
type RemoteBooking struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	EndDate     string `json:"end_date"`
	EndTime     string `json:"end_time"`
	Playground  string `json:"playground"`
}
