package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func GuildID(guildID string) zapcore.Field {
	return zap.String("guild_id", guildID)
}

func ChannelID(channelID string) zapcore.Field {
	return zap.String("channel_id", channelID)
}

func UserID(userID string) zapcore.Field {
	return zap.String("user_id", userID)
}

func EventKind(kind string) zapcore.Field {
	return zap.String("event_kind", kind)
}

// EventID tags every line logged while handling one gateway event.
func EventID(eventID string) zapcore.Field {
	return zap.String("event_id", eventID)
}

func NewLogger(env string) *zap.Logger {
	if strings.ToUpper(env) == "PROD" {
		return zap.Must(zap.NewProduction(zap.WithCaller(true)))
	}

	return zap.Must(zap.NewDevelopment())
}
