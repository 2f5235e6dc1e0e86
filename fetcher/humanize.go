package fetcher

// User-facing sentences for each failure class
const (
	MessageSlowResponse = "Slow API server response, check your internet connection."
	MessageWrongStatus  = "Received wrong status from the users endpoint."
	MessageNotArray     = "The users endpoint didn't return an array."
	MessageUnknown      = "Unknown error while fetching the users endpoint."
)

// Humanize maps a FetchUsers error to the sentence shown in place of the cards
func Humanize(err error) string {
	if IsTimeout(err) {
		return MessageSlowResponse
	}
	return HumanizeKind(KindOf(err))
}

// HumanizeKind maps a classification tag to its sentence; unrecognized tags get the generic one
func HumanizeKind(kind Kind) string {
	switch kind {
	case KindWrongStatus:
		return MessageWrongStatus
	case KindNotArray:
		return MessageNotArray
	default:
		return MessageUnknown
	}
}
