package commands

import (
	"context"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/habitloop/habitbot/habitbot"
	botconfig "github.com/habitloop/habitbot/habitbot/config"
	"github.com/habitloop/habitbot/habitbot/utils"
)

var Progress = discord.SlashCommandCreate{
	Name:        "progress",
	Description: "Your progress for the current week",
}

func ProgressHandler(b *habitbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), botconfig.DefaultQueryTimeout)
		defer cancel()

		userID := e.User().ID.String()
		if _, err := b.Users.Ensure(ctx, userID, e.ChannelID().String(), e.User().Username); err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to load your profile. Please try again later.")
		}

		today := b.Timezones.TodayFor(ctx, userID)
		report, ok, err := b.Progress.WeekReport(ctx, userID, today)
		if err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to build your progress report.")
		}
		if !ok {
			return utils.EH.CreateInfoEmbed(e, "No tasks yet. Create one with `/task create`.")
		}
		return utils.EH.CreateInfoEmbed(e, report)
	}
}
