package discord

import (
	"encoding/json"
	"strings"

	"boardbot/pkg/bus"
)

const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
)

const (
	intentGuilds                 = 1 << 0
	intentGuildMessages          = 1 << 9
	intentGuildMessageReactions  = 1 << 10
	intentDirectMessages         = 1 << 12
	intentDirectMessageReactions = 1 << 13
	intentMessageContent         = 1 << 15
)

const gatewayIntents = intentGuilds |
	intentGuildMessages |
	intentGuildMessageReactions |
	intentDirectMessages |
	intentDirectMessageReactions |
	intentMessageContent

type gatewayEnvelope struct {
	Op int             `json:"op"`
	T  string          `json:"t,omitempty"`
	S  *int64          `json:"s,omitempty"`
	D  json.RawMessage `json:"d,omitempty"`
}

type helloPayload struct {
	HeartbeatIntervalMS int64 `json:"heartbeat_interval"`
}

type readyPayload struct {
	User author `json:"user"`
}

type author struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Bot        bool   `json:"bot"`
}

type messageCreate struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id"`
	Content   string `json:"content"`
	Author    author `json:"author"`
}

type reactionAdd struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	GuildID   string `json:"guild_id"`
	Emoji     struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"emoji"`
	Member *struct {
		User author `json:"user"`
	} `json:"member,omitempty"`
}

// mentionForms lists both mention spellings Discord clients emit for a user.
func mentionForms(userID string) []string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil
	}
	return []string{"<@" + userID + ">", "<@!" + userID + ">"}
}

// toInbound converts a MESSAGE_CREATE payload. Bot authors, the bot itself
// and empty messages are dropped.
func toInbound(message messageCreate, botUserID string, mentions []string) (bus.InboundMessage, bool) {
	authorID := strings.TrimSpace(message.Author.ID)
	if authorID == "" || message.Author.Bot || authorID == botUserID {
		return bus.InboundMessage{}, false
	}
	if strings.TrimSpace(message.Content) == "" {
		return bus.InboundMessage{}, false
	}

	metadata := map[string]string{"username": message.Author.Username}
	if message.GuildID != "" {
		metadata["guild_id"] = message.GuildID
	}

	return bus.InboundMessage{
		Channel:       channelName,
		SenderID:      authorID,
		ChatID:        message.ChannelID,
		MessageID:     message.ID,
		Content:       message.Content,
		Direct:        strings.TrimSpace(message.GuildID) == "",
		SenderMention: "<@" + authorID + ">",
		Mentions:      mentions,
		Metadata:      metadata,
	}, true
}

// toReaction converts a MESSAGE_REACTION_ADD payload. Custom emoji are keyed
// as name:id, the form the reaction endpoint expects.
func toReaction(reaction reactionAdd, botUserID string) (bus.InboundReaction, bool) {
	userID := strings.TrimSpace(reaction.UserID)
	if userID == "" || userID == botUserID {
		return bus.InboundReaction{}, false
	}
	if reaction.Member != nil && reaction.Member.User.Bot {
		return bus.InboundReaction{}, false
	}

	emoji := reaction.Emoji.Name
	if reaction.Emoji.ID != "" {
		emoji = reaction.Emoji.Name + ":" + reaction.Emoji.ID
	}
	if emoji == "" {
		return bus.InboundReaction{}, false
	}

	return bus.InboundReaction{
		Channel:   channelName,
		SenderID:  userID,
		ChatID:    reaction.ChannelID,
		MessageID: reaction.MessageID,
		Emoji:     emoji,
	}, true
}
