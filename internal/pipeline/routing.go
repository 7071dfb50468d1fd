package pipeline

import (
	"VoiceIntent/pkg/intent"
)

type Destination int

const (
	HomePage Destination = iota
	BookingPage
	CheckoutPage
)

var destinationPaths = map[Destination]string{
	HomePage:     "/",
	BookingPage:  "/booking",
	CheckoutPage: "/checkout",
}

var destinationNames = map[Destination]string{
	HomePage:     "HomePage",
	BookingPage:  "BookingPage",
	CheckoutPage: "CheckoutPage",
}

// Destinations lists every destination in table order.
func Destinations() []Destination {
	return []Destination{HomePage, BookingPage, CheckoutPage}
}

func (d Destination) Path() string {
	if path, ok := destinationPaths[d]; ok {
		return path
	}
	return destinationPaths[HomePage]
}

func (d Destination) String() string {
	if name, ok := destinationNames[d]; ok {
		return name
	}
	return destinationNames[HomePage]
}

// Route maps a top intent to its destination. Unknown intents go home.
func Route(topIntent string) Destination {
	switch topIntent {
	case intent.AppointmentBooking:
		return BookingPage
	case intent.MedicineRefill:
		return CheckoutPage
	default:
		return HomePage
	}
}
