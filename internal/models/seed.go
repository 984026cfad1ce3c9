package models

// DefaultContacts returns the contacts used when no snapshot has been stored yet.
func DefaultContacts() []Contact {
	return []Contact{
		{ID: "1", Name: "Mom", Phone: "+1 555-123-4567", Relation: "Family"},
		{ID: "2", Name: "Dad", Phone: "+1 555-765-4321", Relation: "Family"},
		{ID: "3", Name: "Best Friend", Phone: "+1 555-987-6543", Relation: "Friend"},
	}
}

// DefaultKeywords returns the keyword rules used when no snapshot has been stored yet.
func DefaultKeywords() []KeywordRule {
	return []KeywordRule{
		{ID: "1", Phrase: "Code Red", Response: "SOS alert triggered"},
		{ID: "2", Phrase: "Call me ASAP", Response: "Notify primary contact"},
		{ID: "3", Phrase: "What's the weather like?", Response: "Share current location"},
	}
}
