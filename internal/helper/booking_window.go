package helper

import (
	"regexp"
	"time"

	"hospital-queue/internal/apperror"
	"hospital-queue/internal/models"
)

const DateLayout = "2006-01-02"

var identPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// LoadLocation falls back to UTC so a bad QUEUE_TIMEZONE never blocks booking.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ServiceDate is the hospital-local calendar date of now.
func ServiceDate(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(DateLayout)
}

// ValidateQueueKey checks identifiers and the date format.
func ValidateQueueKey(key models.QueueKey) error {
	if !identPattern.MatchString(key.HospitalID) {
		return apperror.NewValidation("invalid hospital_id %q", key.HospitalID)
	}
	if !identPattern.MatchString(key.Department) {
		return apperror.NewValidation("invalid department %q", key.Department)
	}
	if _, err := time.Parse(DateLayout, key.Date); err != nil {
		return apperror.NewValidation("invalid date %q, expected YYYY-MM-DD", key.Date)
	}
	return nil
}

// ValidateBookingDate rejects dates whose queue has rolled over and dates
// beyond the booking horizon, both judged in the hospital's timezone.
func ValidateBookingDate(date string, now time.Time, loc *time.Location, horizonDays int) error {
	day, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return apperror.NewValidation("invalid date %q, expected YYYY-MM-DD", date)
	}

	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	if day.Before(today) {
		return apperror.NewValidation("queue for %s is closed", date)
	}
	if horizonDays >= 0 && day.After(today.AddDate(0, 0, horizonDays)) {
		return apperror.NewValidation("bookings open at most %d days ahead", horizonDays)
	}
	return nil
}
