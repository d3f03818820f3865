package bot

import (
	"strike-warden/internal/modules/automod"

	"github.com/bwmarrin/discordgo"
)

// automodMessage extracts what automod inspects from a gateway message.
func automodMessage(msg *discordgo.Message) automod.Message {
	out := automod.Message{
		ID:        msg.ID,
		ChannelID: msg.ChannelID,
		GuildID:   msg.GuildID,
		Content:   msg.Content,
		System:    !isUserMessage(msg.Type),
	}
	if msg.Author != nil {
		out.AuthorID = msg.Author.ID
		out.AuthorBot = msg.Author.Bot
	}
	if msg.Interaction != nil && msg.Interaction.User != nil {
		out.InteractionUserID = msg.Interaction.User.ID
	}
	for _, sticker := range msg.StickerItems {
		if sticker != nil {
			out.Stickers = append(out.Stickers, sticker.Name)
		}
	}
	for _, embed := range msg.Embeds {
		if embed != nil {
			out.Embeds = append(out.Embeds, automodEmbed(embed))
		}
	}
	for _, user := range msg.Mentions {
		if user != nil && (msg.Author == nil || user.ID != msg.Author.ID) {
			out.Mentions = append(out.Mentions, user.ID)
		}
	}
	if msg.Member != nil && msg.WebhookID == "" {
		out.Member = &automod.Member{Roles: msg.Member.Roles, Booster: msg.Member.PremiumSince != nil}
	}
	return out
}

func automodEmbed(embed *discordgo.MessageEmbed) automod.Embed {
	out := automod.Embed{Title: embed.Title, Description: embed.Description}
	if embed.Footer != nil {
		out.Footer = embed.Footer.Text
	}
	if embed.Author != nil {
		out.Author = embed.Author.Name
	}
	for _, field := range embed.Fields {
		if field != nil {
			out.Fields = append(out.Fields, field.Name, field.Value)
		}
	}
	return out
}

func isUserMessage(kind discordgo.MessageType) bool {
	switch kind {
	case discordgo.MessageTypeDefault, discordgo.MessageTypeReply, discordgo.MessageTypeChatInputCommand, discordgo.MessageTypeContextMenuCommand:
		return true
	default:
		return false
	}
}

func memberName(guildID string, member *discordgo.Member) automod.MemberName {
	name := automod.MemberName{GuildID: guildID, Nickname: member.Nick}
	if member.User != nil {
		name.UserID = member.User.ID
		name.Username = member.User.Username
	}
	return name
}
