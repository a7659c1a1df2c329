package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/habitloop/habitbot/habitbot"
	botconfig "github.com/habitloop/habitbot/habitbot/config"
	"github.com/habitloop/habitbot/habitbot/database/models"
	"github.com/habitloop/habitbot/habitbot/notifier"
	"github.com/habitloop/habitbot/habitbot/schedule"
	"github.com/habitloop/habitbot/habitbot/utils"
	"github.com/sahilm/fuzzy"
)

var Task = discord.SlashCommandCreate{
	Name:        "task",
	Description: "Manage your recurring tasks",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "create",
			Description: "Create a new recurring task",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "name",
					Description: "Task name (e.g. English, 30 min)",
					Required:    true,
				},
				discord.ApplicationCommandOptionString{
					Name:        "time",
					Description: "Start time, 24h HH:MM (e.g. 07:30)",
					Required:    true,
				},
				discord.ApplicationCommandOptionString{
					Name:        "days",
					Description: "Weekdays, e.g. mon,wed,fri or 1,3,5",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "list",
			Description: "Show your tasks and mark today's done",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "delete",
			Description: "Delete a task (history and points are kept)",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:         "task",
					Description:  "The task to delete",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
	},
}

func TaskHandler(b *habitbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), botconfig.DefaultQueryTimeout)
		defer cancel()

		if _, err := b.Users.Ensure(ctx, e.User().ID.String(), e.ChannelID().String(), e.User().Username); err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to load your profile. Please try again later.")
		}

		data := e.SlashCommandInteractionData()
		switch *data.SubCommandName {
		case "create":
			return handleTaskCreate(ctx, b, e)
		case "list":
			return handleTaskList(ctx, b, e)
		case "delete":
			return handleTaskDelete(ctx, b, e)
		default:
			return utils.EH.CreateErrorEmbed(e, "Unknown subcommand")
		}
	}
}

func handleTaskCreate(ctx context.Context, b *habitbot.Bot, e *handler.CommandEvent) error {
	data := e.SlashCommandInteractionData()
	name := strings.TrimSpace(data.String("name"))
	timeStr := strings.TrimSpace(data.String("time"))
	daysStr := data.String("days")

	// Boundary validation: malformed input never reaches the core.
	if name == "" {
		return utils.EH.CreateErrorEmbed(e, "Task name must not be empty.")
	}
	clock, err := schedule.ParseClock(timeStr)
	if err != nil {
		return utils.EH.CreateErrorEmbed(e, "Bad time format. Example: 07:30")
	}
	days, err := parseDaysOption(daysStr)
	if err != nil {
		return utils.EH.CreateErrorEmbed(e, "Bad weekday list. Example: mon,wed,fri or 1,3,5")
	}

	task := &models.Task{
		UserID:  e.User().ID.String(),
		Name:    name,
		TimeStr: clock.String(),
		Days:    days.String(),
	}
	if err := b.TaskRepository.Create(ctx, task); err != nil {
		return utils.EH.CreateErrorEmbed(e, "Failed to save the task. Please try again later.")
	}
	if err := b.Scheduler.RegisterTask(ctx, task); err != nil {
		return utils.EH.CreateErrorEmbed(e, "Task saved but scheduling failed; it will be picked up on restart.")
	}

	return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf(
		"✅ Task created: **%s**\n⏰ Time: %s\n📅 Days: %s",
		name, clock.String(), formatDays(days)))
}

func handleTaskList(ctx context.Context, b *habitbot.Bot, e *handler.CommandEvent) error {
	userID := e.User().ID.String()
	tasks, err := b.TaskRepository.GetByUserID(ctx, userID)
	if err != nil {
		return utils.EH.CreateErrorEmbed(e, "Failed to load your tasks. Please try again later.")
	}
	if len(tasks) == 0 {
		return utils.EH.CreateInfoEmbed(e, "You have no tasks yet. Create one with `/task create`.")
	}

	today := b.Timezones.TodayFor(ctx, userID)

	first := true
	for _, task := range tasks {
		days, err := schedule.ParseWeekdays(task.Days)
		if err != nil {
			continue
		}
		done, err := b.Points.IsDoneToday(ctx, task.ID, today)
		if err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to check today's completions.")
		}

		var action notifier.Action
		switch {
		case done:
			action = notifier.Action{ID: "/noop", Label: "✔️ Done today", Style: notifier.StyleSecondary, Disabled: true}
		case schedule.IsDue(days, today):
			action = notifier.Action{ID: fmt.Sprintf("/done/%d", task.ID), Label: "✅ Mark done (today)", Style: notifier.StyleSuccess}
		default:
			action = notifier.Action{ID: "/noop", Label: "Not scheduled today", Style: notifier.StyleSecondary, Disabled: true}
		}

		msg := discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "📝 " + task.Name,
				Description: fmt.Sprintf("⏰ %s\n📅 %s", task.TimeStr, formatDays(days)),
				Color:       botconfig.InfoColor,
			}},
			Components: []discord.ContainerComponent{
				discord.NewActionRow(actionToButton(action)),
			},
		}

		if first {
			if err := e.CreateMessage(msg); err != nil {
				return err
			}
			first = false
			continue
		}
		if _, err := e.CreateFollowupMessage(msg); err != nil {
			return err
		}
	}
	return nil
}

func handleTaskDelete(ctx context.Context, b *habitbot.Bot, e *handler.CommandEvent) error {
	raw := e.SlashCommandInteractionData().String("task")
	taskID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return utils.EH.CreateErrorEmbed(e, "Pick a task from the suggestions.")
	}

	task, err := b.TaskRepository.GetByID(ctx, taskID)
	if err != nil {
		return utils.EH.CreateErrorEmbed(e, "That task no longer exists.")
	}
	if task.UserID != e.User().ID.String() {
		return utils.EH.CreateErrorEmbed(e, "That task belongs to someone else.")
	}

	if err := b.TaskRepository.Delete(ctx, taskID); err != nil {
		return utils.EH.CreateErrorEmbed(e, "Failed to delete the task. Please try again later.")
	}
	// Synchronous with deletion: no further reminder can fire for it.
	b.Scheduler.UnregisterTask(taskID)

	return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("🗑 Task deleted: **%s**", task.Name))
}

// TaskAutocompleteHandler suggests the caller's own tasks by fuzzy name
// match for /task delete.
func TaskAutocompleteHandler(b *habitbot.Bot) handler.AutocompleteHandler {
	return func(e *handler.AutocompleteEvent) error {
		focused := e.Data.Focused()
		if focused.Name != "task" {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), botconfig.DefaultQueryTimeout)
		defer cancel()

		tasks, err := b.TaskRepository.GetByUserID(ctx, e.User().ID.String())
		if err != nil {
			return e.AutocompleteResult(nil)
		}

		query := ""
		if focused.Value != nil {
			var s string
			if err := json.Unmarshal(focused.Value, &s); err == nil {
				query = strings.TrimSpace(s)
			}
		}
		if query != "" {
			names := make([]string, len(tasks))
			for i, t := range tasks {
				names[i] = t.Name
			}
			matches := fuzzy.Find(query, names)
			ranked := make([]*models.Task, 0, len(matches))
			for _, m := range matches {
				ranked = append(ranked, tasks[m.Index])
			}
			tasks = ranked
		}

		choices := make([]discord.AutocompleteChoice, 0, min(len(tasks), 25))
		for _, t := range tasks {
			if len(choices) == 25 {
				break
			}
			choices = append(choices, discord.AutocompleteChoiceString{
				Name:  fmt.Sprintf("%s (%s)", t.Name, t.TimeStr),
				Value: strconv.FormatInt(t.ID, 10),
			})
		}
		return e.AutocompleteResult(choices)
	}
}

func actionToButton(a notifier.Action) discord.ButtonComponent {
	var btn discord.ButtonComponent
	switch a.Style {
	case notifier.StyleSuccess:
		btn = discord.NewSuccessButton(a.Label, a.ID)
	case notifier.StyleSecondary:
		btn = discord.NewSecondaryButton(a.Label, a.ID)
	default:
		btn = discord.NewPrimaryButton(a.Label, a.ID)
	}
	if a.Disabled {
		btn = btn.AsDisabled()
	}
	return btn
}

var dayNames = map[string]int{
	"mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6, "sun": 7,
}

var dayLabels = [...]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// parseDaysOption accepts weekday names ("mon,wed,fri") or ISO numbers
// ("1,3,5") and normalizes to the schedule weekday set.
func parseDaysOption(s string) (schedule.Weekdays, error) {
	var nums []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if d, ok := dayNames[part]; ok {
			nums = append(nums, strconv.Itoa(d))
			continue
		}
		nums = append(nums, part)
	}
	return schedule.ParseWeekdays(strings.Join(nums, ","))
}

func formatDays(days schedule.Weekdays) string {
	labels := make([]string, len(days))
	for i, d := range days {
		labels[i] = dayLabels[d-1]
	}
	return strings.Join(labels, ", ")
}
