package commands

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/habitloop/habitbot/habitbot"
	botconfig "github.com/habitloop/habitbot/habitbot/config"
)

var Help = discord.SlashCommandCreate{
	Name:        "help",
	Description: "How the habit tracker works",
}

const helpText = "**How it works**\n" +
	"Create recurring tasks with `/task create` and I will remind you three times on each scheduled day: " +
	"10 minutes before the start time, at the start time, and one hour after if you still haven't marked it done.\n\n" +
	"**Scoring**\n" +
	"🪙 **+10 coins** for every completed task (press the ✅ button or use `/task list`).\n" +
	"🎁 **+30 bonus coins** for a perfect week on a task — every scheduled day completed.\n" +
	"Weeks run Monday to Sunday and are settled early Monday morning with a recap message.\n\n" +
	"**Commands**\n" +
	"`/task create` — add a recurring task (time + weekdays)\n" +
	"`/task list` — see your tasks and mark today's done\n" +
	"`/task delete` — remove a task (history and coins are kept)\n" +
	"`/progress` — your current week at a glance\n" +
	"`/leaderboard` — weekly coin standings\n" +
	"`/timezone set` — reminders in your local time (default Europe/Prague)"

func HelpHandler(b *habitbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		return e.CreateMessage(discord.NewMessageCreateBuilder().
			SetEmbeds(discord.NewEmbedBuilder().
				SetTitle("📘 Habit Tracker").
				SetDescription(helpText).
				SetColor(botconfig.InfoColor).
				Build()).
			Build())
	}
}
