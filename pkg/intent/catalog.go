package intent

const (
	AppointmentBooking = "Appointment Booking"
	MedicineRefill     = "Medicine Refill"
	None               = "None"
)

type Definition struct {
	Name        string
	Description string
	Keywords    []string
	Synonyms    []string
}

func DefaultCatalog() []Definition {
	return []Definition{
		{
			Name:        AppointmentBooking,
			Description: "The user wants to book, schedule or change a clinic appointment.",
			Keywords:    []string{"appointment", "book", "booking", "schedule", "doctor", "consultation", "visit", "reschedule"},
			Synonyms:    []string{"see a doctor", "make an appointment", "book a slot", "schedule a visit"},
		},
		{
			Name:        MedicineRefill,
			Description: "The user wants to refill or reorder medication.",
			Keywords:    []string{"medicine", "medication", "refill", "prescription", "pharmacy", "pills", "drugs", "reorder"},
			Synonyms:    []string{"top up my medicine", "more medicine", "renew my prescription", "run out of pills"},
		},
		{
			Name:        None,
			Description: "Anything else.",
		},
	}
}
