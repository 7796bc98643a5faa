package telegram

// User is a Telegram user or bot.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	IsBot     bool   `json:"is_bot"`
}

// Chat is a private, group or channel chat.
type Chat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"` // "private" | "group" | "supergroup" | "channel"
	Title string `json:"title"`
}

// Message is an inbound or sent chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

// Update is one long-poll event.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// ChatMember reports a user's membership status in a chat.
type ChatMember struct {
	Status string `json:"status"` // "creator" | "administrator" | "member" | "left" | "kicked"
	User   User   `json:"user"`
}

// IsMember reports whether the status counts as joined.
func (m *ChatMember) IsMember() bool {
	switch m.Status {
	case "member", "administrator", "creator":
		return true
	}
	return false
}

// InlineKeyboardMarkup attaches buttons under a message.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// InlineKeyboardButton is one button; exactly one optional field set.
type InlineKeyboardButton struct {
	Text         string          `json:"text"`
	URL          string          `json:"url,omitempty"`
	CallbackData string          `json:"callback_data,omitempty"`
	CopyText     *CopyTextButton `json:"copy_text,omitempty"`
}

// CopyTextButton copies its text to the clipboard when pressed.
type CopyTextButton struct {
	Text string `json:"text"`
}

// LinkPreviewOptions controls link preview generation.
type LinkPreviewOptions struct {
	IsDisabled bool `json:"is_disabled"`
}
