package provider

import "github.com/example/calendar-bridge/internal/persistence"

// DefaultCatalogue lists the providers the bridge knows how to talk to.
// Capability flags and rate limits mirror each vendor's published API limits.
func DefaultCatalogue() []persistence.Provider {
	return []persistence.Provider{
		{
			ID:          "microsoft365",
			DisplayName: "Microsoft 365",
			Category:    persistence.ProviderCategoryMicrosoft,
			Capabilities: persistence.ProviderCapabilities{
				CreateEvents:      true,
				UpdateEvents:      true,
				DeleteEvents:      true,
				ReadEvents:        true,
				ManagePermissions: true,
				Recurring:         true,
				Attachments:       true,
				Reminders:         true,
				TimeZones:         true,
				Availability:      true,
			},
			RateLimits: persistence.RateLimits{PerMinute: 60, PerHour: 3600, PerDay: 86400},
			Status:     persistence.ProviderStatusActive,
		},
		{
			ID:          "google-calendar",
			DisplayName: "Google Calendar",
			Category:    persistence.ProviderCategoryGoogle,
			Capabilities: persistence.ProviderCapabilities{
				CreateEvents: true,
				UpdateEvents: true,
				DeleteEvents: true,
				ReadEvents:   true,
				Recurring:    true,
				Attachments:  true,
				Reminders:    true,
				TimeZones:    true,
				Availability: true,
			},
			RateLimits: persistence.RateLimits{PerMinute: 100, PerHour: 6000, PerDay: 100000},
			Status:     persistence.ProviderStatusActive,
		},
		{
			ID:          "exchange",
			DisplayName: "Exchange Server",
			Category:    persistence.ProviderCategoryExchange,
			Capabilities: persistence.ProviderCapabilities{
				CreateEvents:      true,
				UpdateEvents:      true,
				DeleteEvents:      true,
				ReadEvents:        true,
				ManagePermissions: true,
				Recurring:         true,
				Attachments:       true,
				Reminders:         true,
				TimeZones:         true,
				Availability:      true,
			},
			RateLimits: persistence.RateLimits{PerMinute: 30, PerHour: 1800, PerDay: 43200},
			Status:     persistence.ProviderStatusActive,
		},
		{
			ID:          "caldav",
			DisplayName: "CalDAV",
			Category:    persistence.ProviderCategoryCalDAV,
			Capabilities: persistence.ProviderCapabilities{
				CreateEvents: true,
				UpdateEvents: true,
				DeleteEvents: true,
				ReadEvents:   true,
				Recurring:    true,
				Reminders:    true,
				TimeZones:    true,
			},
			RateLimits: persistence.RateLimits{PerMinute: 20, PerHour: 1200, PerDay: 28800},
			Status:     persistence.ProviderStatusActive,
		},
		{
			ID:          "icloud",
			DisplayName: "iCloud Calendar",
			Category:    persistence.ProviderCategoryICloud,
			Capabilities: persistence.ProviderCapabilities{
				CreateEvents: true,
				UpdateEvents: true,
				DeleteEvents: true,
				ReadEvents:   true,
				Recurring:    true,
				Reminders:    true,
				TimeZones:    true,
			},
			RateLimits: persistence.RateLimits{PerMinute: 15, PerHour: 900, PerDay: 21600},
			Status:     persistence.ProviderStatusActive,
		},
	}
}
