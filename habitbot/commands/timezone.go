package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/habitloop/habitbot/habitbot"
	botconfig "github.com/habitloop/habitbot/habitbot/config"
	"github.com/habitloop/habitbot/habitbot/utils"
	"github.com/sahilm/fuzzy"
)

var Timezone = discord.SlashCommandCreate{
	Name:        "timezone",
	Description: "Manage the timezone used for your reminders",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "set",
			Description: "Set your timezone",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:         "zone",
					Description:  "IANA timezone name, e.g. Europe/Prague",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "show",
			Description: "Show your current timezone",
		},
	},
}

// commonZones seeds autocomplete; any valid IANA name typed in full works too.
var commonZones = []string{
	"Europe/Prague",
	"Europe/London",
	"Europe/Berlin",
	"Europe/Paris",
	"Europe/Madrid",
	"Europe/Kyiv",
	"Europe/Moscow",
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Los_Angeles",
	"America/Sao_Paulo",
	"Asia/Tokyo",
	"Asia/Shanghai",
	"Asia/Singapore",
	"Asia/Kolkata",
	"Asia/Dubai",
	"Australia/Sydney",
	"Pacific/Auckland",
	"UTC",
}

func TimezoneHandler(b *habitbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), botconfig.DefaultQueryTimeout)
		defer cancel()

		userID := e.User().ID.String()
		if _, err := b.Users.Ensure(ctx, userID, e.ChannelID().String(), e.User().Username); err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to load your profile. Please try again later.")
		}

		data := e.SlashCommandInteractionData()
		switch *data.SubCommandName {
		case "set":
			zone := data.String("zone")
			if err := b.Timezones.SetZone(ctx, userID, zone); err != nil {
				return utils.EH.CreateErrorEmbed(e, fmt.Sprintf("Unknown timezone `%s`. Use an IANA name like `Europe/Prague`.", zone))
			}
			now := b.Timezones.NowFor(ctx, userID)
			return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Timezone set to **%s**. Your local time is now %s.", zone, now.Format("15:04")))
		case "show":
			loc := b.Timezones.ZoneFor(ctx, userID)
			now := b.Timezones.NowFor(ctx, userID)
			return utils.EH.CreateInfoEmbed(e, fmt.Sprintf("Your timezone is **%s** (local time %s).", loc.String(), now.Format("15:04")))
		}
		return nil
	}
}

func TimezoneAutocompleteHandler(b *habitbot.Bot) handler.AutocompleteHandler {
	return func(e *handler.AutocompleteEvent) error {
		focused := e.Data.Focused()
		if focused.Name != "zone" {
			return nil
		}

		query := ""
		if focused.Value != nil {
			var s string
			if err := json.Unmarshal(focused.Value, &s); err == nil {
				query = strings.TrimSpace(s)
			}
		}

		choices := make([]discord.AutocompleteChoice, 0, 25)
		if query == "" {
			for _, zone := range commonZones {
				if len(choices) == 25 {
					break
				}
				choices = append(choices, discord.AutocompleteChoiceString{Name: zone, Value: zone})
			}
			return e.AutocompleteResult(choices)
		}

		matches := fuzzy.Find(query, commonZones)
		for _, m := range matches {
			if len(choices) == 25 {
				break
			}
			choices = append(choices, discord.AutocompleteChoiceString{Name: m.Str, Value: m.Str})
		}
		return e.AutocompleteResult(choices)
	}
}
