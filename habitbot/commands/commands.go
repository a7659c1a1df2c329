package commands

import "github.com/disgoorg/disgo/discord"

var Commands = []discord.ApplicationCommandCreate{
	Task,
	Progress,
	Leaderboard,
	Timezone,
	Help,
}
