package agentic

import (
	"fmt"
	"strings"
)

const noEventsMessage = "I couldn't find any events matching your query. Please try a different search."

func formatAnswer(answer string) string {
	return "\n" + answer + "\n"
}

// formatEvents renders search hits as a numbered markdown list.
func formatEvents(events []Event) string {
	if len(events) == 0 {
		return "\n" + noEventsMessage + "\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\n🎉 I found %d event(s) for you!\n\n", len(events))
	for i, event := range events {
		fmt.Fprintf(&b, "**%d. [%s](%s)**\n", i+1, orDefault(event.Title, "No Title"), orDefault(event.BookingLink, "#"))
		fmt.Fprintf(&b, "   📅 Date: %s\n", orDefault(event.Date, "N/A"))
		fmt.Fprintf(&b, "   📍 Location: %s\n", orDefault(event.Location, "N/A"))
		fmt.Fprintf(&b, "   📝 Description: %s\n\n", orDefault(event.Description, "No description available."))
	}
	return b.String()
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
