package number

import (
	"errors"
	"strconv"
	"strings"
	"time"

	billingdm "github.com/frahmantamala/number-provisioning/internal/core/datamodel/billing"
)

const (
	DefaultPeriodDays = 30
	// MaxDurationDays bounds any purchased window to ten years.
	MaxDurationDays = 3650
	day             = 24 * time.Hour
)

var ErrDurationTooLong = errors.New("duration exceeds maximum")

// Validity is the time window a purchase grants.
type Validity struct {
	PeriodStart  time.Time
	PeriodEnd    time.Time
	ExpiresAt    *time.Time
	AutoRenew    bool
	BillingCycle string
	// DurationLabel is what gets stored on a rental record.
	DurationLabel string
}

// ComputeValidity derives the validity window. Rentals and one-time purchases expire
// after their duration; everything else is a continuous subscription with no expiry.
func ComputeValidity(p Purchase, now time.Time) Validity {
	if p.Category == CategoryRental || p.Category == CategoryOneTime {
		label := p.Duration
		if label == "" {
			label = p.BillingCycle
		}
		days := ParseDurationDays(label)
		expiry := now.Add(time.Duration(days) * day)

		if label == "" {
			label = strconv.Itoa(days) + "d"
		}
		cycle := p.BillingCycle
		if cycle == "" {
			cycle = billingdm.CycleOneTime
		}
		return Validity{
			PeriodStart:   now,
			PeriodEnd:     expiry,
			ExpiresAt:     &expiry,
			AutoRenew:     false,
			BillingCycle:  cycle,
			DurationLabel: label,
		}
	}

	cycle := p.BillingCycle
	if cycle == "" {
		cycle = billingdm.CycleMonthly
	}
	return Validity{
		PeriodStart:  now,
		PeriodEnd:    now.Add(DefaultPeriodDays * day),
		AutoRenew:    true,
		BillingCycle: cycle,
	}
}

// ParseDurationDays understands "7d", "2w", "3m" (30-day months), bare day counts
// and "monthly". Anything unrecognised is the 30 day default; anything longer than
// MaxDurationDays is clamped to it.
func ParseDurationDays(label string) int {
	days, err := parseDurationDays(label)
	if err != nil {
		return MaxDurationDays
	}
	return days
}

// parseDurationDays reports ErrDurationTooLong instead of clamping.
func parseDurationDays(label string) (int, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" || label == billingdm.CycleMonthly {
		return DefaultPeriodDays, nil
	}

	n, err := strconv.Atoi(label)
	if err == nil && n > 0 {
		return scaleDays(n, 1)
	}
	if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(label, "-") {
		return 0, ErrDurationTooLong
	}

	unit := label[len(label)-1]
	n, err = strconv.Atoi(label[:len(label)-1])
	if errors.Is(err, strconv.ErrRange) && strings.IndexByte("dwm", unit) >= 0 && !strings.HasPrefix(label, "-") {
		return 0, ErrDurationTooLong
	}
	if err != nil || n <= 0 {
		return DefaultPeriodDays, nil
	}
	switch unit {
	case 'd':
		return scaleDays(n, 1)
	case 'w':
		return scaleDays(n, 7)
	case 'm':
		return scaleDays(n, DefaultPeriodDays)
	default:
		return DefaultPeriodDays, nil
	}
}

func scaleDays(n, per int) (int, error) {
	if n > MaxDurationDays/per {
		return 0, ErrDurationTooLong
	}
	return n * per, nil
}
