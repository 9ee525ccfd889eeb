package application

import "expvar"

// Counters published on /api/debug/vars.
var (
	conversationVars = expvar.NewMap("conversation")
	backfillVars     = expvar.NewMap("backfill")
)

const (
	varEvents         = "events"
	varFailures       = "failures"
	varUsersCreated   = "users_created"
	varMealsLogged    = "meals_logged"
	varCommitFailures = "commit_failures"
	varResolved       = "resolved"
	varUnresolved     = "unresolved"
	varRuns           = "runs"
)
