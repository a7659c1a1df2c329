package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"
	"github.com/habitloop/habitbot/habitbot"
	botconfig "github.com/habitloop/habitbot/habitbot/config"
	"github.com/habitloop/habitbot/habitbot/database/models"
	"github.com/habitloop/habitbot/habitbot/schedule"
	"github.com/habitloop/habitbot/habitbot/utils"
)

var Leaderboard = discord.SlashCommandCreate{
	Name:        "leaderboard",
	Description: "Weekly coin standings",
}

func LeaderboardHandler(b *habitbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), botconfig.DefaultQueryTimeout)
		defer cancel()

		userID := e.User().ID.String()
		if _, err := b.Users.Ensure(ctx, userID, e.ChannelID().String(), e.User().Username); err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to load your profile. Please try again later.")
		}

		today := b.Timezones.TodayFor(ctx, userID)
		weekStart := schedule.FormatDate(schedule.MondayOf(today))

		standings, err := b.LeaderboardRepository.GetWeekStandings(ctx, weekStart)
		if err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to load the leaderboard.")
		}
		if len(standings) == 0 {
			return utils.EH.CreateInfoEmbed(e, "No coins earned this week yet. Complete a task to get on the board!")
		}

		names := make(map[string]string)
		users, err := b.UserRepository.GetAll(ctx)
		if err == nil {
			for _, u := range users {
				names[u.DiscordID] = u.Username
			}
		}

		callerRank := 0
		callerPoints := 0
		for i, entry := range standings {
			if entry.UserID == userID {
				callerRank = i + 1
				callerPoints = entry.Points
				break
			}
		}

		totalPages := (len(standings) + botconfig.StandingsPerPage - 1) / botconfig.StandingsPerPage

		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				if page >= totalPages {
					page = totalPages - 1
				}
				start := page * botconfig.StandingsPerPage
				end := start + botconfig.StandingsPerPage
				if end > len(standings) {
					end = len(standings)
				}

				var sb strings.Builder
				for i, entry := range standings[start:end] {
					fmt.Fprintf(&sb, "%s %s — %d 🪙\n", rankMedal(start+i+1), displayName(names, entry), entry.Points)
				}
				if callerRank > 0 {
					fmt.Fprintf(&sb, "\nYour rank: **#%d** with %d 🪙", callerRank, callerPoints)
				} else {
					sb.WriteString("\nYou have no coins this week yet.")
				}

				embed.
					SetTitle("🏆 Weekly Leaderboard").
					SetDescription(sb.String()).
					SetColor(botconfig.InfoColor).
					SetFooter(fmt.Sprintf("Week of %s • Page %d/%d", weekStart, page+1, totalPages), "")
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}

func rankMedal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("`#%d`", rank)
	}
}

func displayName(names map[string]string, entry *models.LeaderboardEntry) string {
	if name, ok := names[entry.UserID]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("<@%s>", entry.UserID)
}
