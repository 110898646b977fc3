package diff

const (
	AttrName              = "name"
	AttrTopic             = "topic"
	AttrCategory          = "category"
	AttrSlowmode          = "slowmode_delay"
	AttrNSFW              = "nsfw"
	AttrPosition          = "position"
	AttrBitrate           = "bitrate"
	AttrUserLimit         = "user_limit"
	AttrColour            = "colour"
	AttrMentionable       = "mentionable"
	AttrHoist             = "hoist"
	AttrNick              = "nick"
	AttrRoles             = "roles"
	AttrRegion            = "region"
	AttrAFKTimeout        = "afk_timeout"
	AttrAFKChannel        = "afk_channel"
	AttrIcon              = "icon"
	AttrOwner             = "owner"
	AttrSplash            = "splash"
	AttrSystemChannel     = "system_channel"
	AttrVerificationLevel = "verification_level"
	AttrOverwrite         = "overwrite"
	AttrDeaf              = "deaf"
	AttrMute              = "mute"
	AttrVoiceChannel      = "channel"
	AttrEmojiRoles        = "emoji_roles"
)

var TextChannelAttributes = []Attribute{
	{Key: AttrName, Label: "Name:"},
	{Key: AttrTopic, Label: "Topic:"},
	{Key: AttrCategory, Label: "Category:"},
	{Key: AttrSlowmode, Label: "Slowmode delay:"},
	{Key: AttrNSFW, Label: "NSFW"},
}

var VoiceChannelAttributes = []Attribute{
	{Key: AttrName, Label: "Name:"},
	{Key: AttrPosition, Label: "Position:"},
	{Key: AttrCategory, Label: "Category:"},
	{Key: AttrBitrate, Label: "Bitrate:"},
	{Key: AttrUserLimit, Label: "User limit:"},
}

var RoleAttributes = []Attribute{
	{Key: AttrName, Label: "Name:"},
	{Key: AttrColour, Label: "Colour:"},
	{Key: AttrMentionable, Label: "Mentionable:"},
	{Key: AttrHoist, Label: "Is Hoisted:"},
}

var MemberAttributes = []Attribute{
	{Key: AttrNick, Label: "Nickname:"},
}

var GuildAttributes = []Attribute{
	{Key: AttrName, Label: "Name:"},
	{Key: AttrRegion, Label: "Region:"},
	{Key: AttrAFKTimeout, Label: "AFK Timeout:"},
	{Key: AttrAFKChannel, Label: "AFK Channel:"},
	{Key: AttrIcon, Label: "Server Icon:"},
	{Key: AttrOwner, Label: "Server Owner:"},
	{Key: AttrSplash, Label: "Splash Image:"},
	{Key: AttrSystemChannel, Label: "Welcome message channel:"},
	{Key: AttrVerificationLevel, Label: "Verification Level:"},
}
