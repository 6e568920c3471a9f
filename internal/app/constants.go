package app

import "time"

// DefaultTurnDuration applies when the service is built without an explicit turn length.
const DefaultTurnDuration = 25 * time.Second

// DefaultLeaderboardSize matches the public leaderboard length.
const DefaultLeaderboardSize = 50

const maxCountryLength = 64
