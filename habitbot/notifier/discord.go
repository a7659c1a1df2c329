package notifier

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

// DiscordNotifier delivers over the bot's REST client to the channel a
// user registered from. The context is accepted for interface symmetry;
// disgo's rest client manages its own request timeouts.
type DiscordNotifier struct {
	client bot.Client
}

func NewDiscordNotifier(client bot.Client) *DiscordNotifier {
	return &DiscordNotifier{client: client}
}

func (n *DiscordNotifier) Send(_ context.Context, address string, text string, actions []Action) error {
	channelID, err := snowflake.Parse(address)
	if err != nil {
		return fmt.Errorf("invalid delivery address %q: %w", address, err)
	}

	msg := discord.MessageCreate{Content: text}
	if len(actions) > 0 {
		buttons := make([]discord.InteractiveComponent, 0, len(actions))
		for _, a := range actions {
			var btn discord.ButtonComponent
			switch a.Style {
			case StyleSuccess:
				btn = discord.NewSuccessButton(a.Label, a.ID)
			case StyleSecondary:
				btn = discord.NewSecondaryButton(a.Label, a.ID)
			default:
				btn = discord.NewPrimaryButton(a.Label, a.ID)
			}
			if a.Disabled {
				btn = btn.AsDisabled()
			}
			buttons = append(buttons, btn)
		}
		msg.Components = []discord.ContainerComponent{discord.NewActionRow(buttons...)}
	}

	if _, err := n.client.Rest().CreateMessage(channelID, msg); err != nil {
		return fmt.Errorf("failed to deliver message: %w", err)
	}
	return nil
}
