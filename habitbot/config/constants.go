package config

import "time"

// UI colors
const (
	ErrorColor   = 0xFF0000
	SuccessColor = 0x00FF00
	InfoColor    = 0x0099FF
	WarningColor = 0xFFAA00
)

// Timeouts
const (
	DefaultQueryTimeout = 5 * time.Second
	CommandTimeout      = 10 * time.Second
)

// Leaderboard pagination
const StandingsPerPage = 10
