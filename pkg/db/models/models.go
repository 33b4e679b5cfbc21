package models

// All returns every persisted model in dependency order. Used by sqlite
// bootstrapping and repository tests.
func All() []any {
	return []any{
		&Subsite{},
		&User{},
		&Role{},
		&Agent{},
		&Space{},
		&Event{},
		&Project{},
		&Seal{},
		&SealRelation{},
		&AgentRelation{},
		&Term{},
		&TermRelation{},
		&EntityMeta{},
		&Notification{},
	}
}

// ExpressionIndexes lists the indexes gorm tags cannot declare. The goose
// migrations create them on postgres; sqlite bootstrapping runs these after
// AutoMigrate.
func ExpressionIndexes() []string {
	return []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS usr_provider_email_idx ON usr (auth_provider, lower(email))",
	}
}
