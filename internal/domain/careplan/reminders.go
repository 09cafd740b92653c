package careplan

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultReminderIntervalDays is used when the plan's frequency text cannot
// be parsed. Upstream generation format is not contractually guaranteed.
const DefaultReminderIntervalDays = 7

var (
	everyNPattern = regexp.MustCompile(`every\s+(\d+)(?:\s*(?:-|to)\s*\d+)?\s*(day|week|month)s?`)
	unitPattern   = regexp.MustCompile(`\b(daily|weekly|biweekly|fortnightly|monthly)\b`)
)

// DeriveReminders computes care reminders deterministically from the plan's
// watering and fertilizer frequency text.
func DeriveReminders(plan *Plan) []Reminder {
	reminders := []Reminder{
		{
			Kind:         "watering",
			IntervalDays: ReminderInterval(plan.Sections["watering"]),
			Message:      "Time to water your plant.",
		},
		{
			Kind:         "fertilizer",
			IntervalDays: ReminderInterval(plan.Sections["fertilizer"]),
			Message:      "Time to fertilize your plant.",
		},
	}
	return reminders
}

// ReminderInterval extracts a day interval from free-form frequency text,
// e.g. "water every 3 days" or "feed monthly". Unparseable text defaults to
// a safe generic interval rather than failing.
func ReminderInterval(text string) int {
	lower := strings.ToLower(text)

	if m := everyNPattern.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return DefaultReminderIntervalDays
		}
		switch m[2] {
		case "day":
			return n
		case "week":
			return n * 7
		case "month":
			return n * 30
		}
	}

	if strings.Contains(lower, "every other day") {
		return 2
	}

	if m := unitPattern.FindStringSubmatch(lower); m != nil {
		switch m[1] {
		case "daily":
			return 1
		case "weekly":
			return 7
		case "biweekly", "fortnightly":
			return 14
		case "monthly":
			return 30
		}
	}

	return DefaultReminderIntervalDays
}

// Summary renders a one-line human-readable completion message.
func Summary(displayName string, isHealthy bool) string {
	if isHealthy {
		return fmt.Sprintf("Your %s looks healthy! A personalized care plan is ready.", displayName)
	}
	return fmt.Sprintf("We found some issues with your %s. Review the findings and follow the care plan to help it recover.", displayName)
}
