package models

// All returns every model managed by AutoMigrate, parents before children
func All() []any {
	return []any{
		&User{},
		&TailorProfile{},
		&TailorBadge{},
		&Review{},
		&Order{},
		&Revision{},
		&Message{},
		&TimelineEntry{},
		&OutboxEvent{},
	}
}
