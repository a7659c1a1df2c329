package components

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/habitloop/habitbot/habitbot"
	botconfig "github.com/habitloop/habitbot/habitbot/config"
	"github.com/habitloop/habitbot/habitbot/database/repositories"
	"github.com/habitloop/habitbot/habitbot/schedule"
	"github.com/habitloop/habitbot/habitbot/services"
	"github.com/habitloop/habitbot/habitbot/utils"
)

// DoneButtonHandler handles the ✅ button attached to reminders and
// /task list entries. The custom ID carries the task ID: /done/{id}.
func DoneButtonHandler(b *habitbot.Bot) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		data, ok := e.Data.(discord.ButtonInteractionData)
		if !ok {
			return fmt.Errorf("invalid interaction type")
		}

		idStr := strings.TrimPrefix(data.CustomID(), "/done/")
		taskID, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return utils.EH.CreateEphemeralError(e, "This button is broken. Try `/task list` instead.")
		}

		ctx, cancel := context.WithTimeout(context.Background(), botconfig.DefaultQueryTimeout)
		defer cancel()

		userID := e.User().ID.String()
		task, err := b.TaskRepository.GetByID(ctx, taskID)
		if err != nil {
			if errors.Is(err, repositories.ErrTaskNotFound) {
				return utils.EH.CreateEphemeralError(e, "This task no longer exists.")
			}
			return utils.EH.CreateEphemeralError(e, "Failed to look up the task. Please try again.")
		}
		if task.UserID != userID {
			return utils.EH.CreateEphemeralError(e, "This task belongs to someone else.")
		}

		today := b.Timezones.TodayFor(ctx, userID)
		result, err := b.Points.MarkDone(ctx, taskID, today)
		if err != nil {
			if errors.Is(err, repositories.ErrTaskNotFound) {
				return utils.EH.CreateEphemeralError(e, "This task no longer exists.")
			}
			return utils.EH.CreateEphemeralError(e, "Failed to record the completion. Please try again.")
		}

		if result == services.AlreadyMarked {
			return utils.EH.CreateEphemeralSuccess(e, fmt.Sprintf("**%s** is already marked done for today. 👌", task.Name))
		}

		weekStart := schedule.FormatDate(schedule.MondayOf(today))
		total, err := b.LeaderboardRepository.GetPoints(ctx, userID, weekStart)
		if err != nil {
			total = 0
		}

		return e.UpdateMessage(discord.MessageUpdate{
			Embeds: &[]discord.Embed{{
				Description: fmt.Sprintf("✅ **%s** done! +%d 🪙 (this week: %d)", task.Name, services.CompletionPoints, total),
				Color:       botconfig.SuccessColor,
			}},
			Components: &[]discord.ContainerComponent{
				discord.NewActionRow(
					discord.NewSuccessButton("✔️ Done today", "/noop").AsDisabled(),
				),
			},
		})
	}
}

// NoopButtonHandler acknowledges disabled-placeholder button presses
// without doing anything. Disabled buttons normally can't be pressed,
// but stale messages may still route here.
func NoopButtonHandler(b *habitbot.Bot) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		return e.DeferUpdateMessage()
	}
}
