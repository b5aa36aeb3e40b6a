package model

// Message 一条进入 agent 的消息，按 room 归档到记忆里
type Message struct {
	ID        string  `json:"id"`
	AgentID   string  `json:"agent_id"`
	UserID    string  `json:"user_id"`
	RoomID    string  `json:"room_id"`
	Content   Content `json:"content"`
	CreatedAt int64   `json:"created_at"` // 毫秒
}

type Content struct {
	Text        string         `json:"text"`
	Action      string         `json:"action,omitempty"`
	Source      string         `json:"source,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	Attachments []Attachment   `json:"attachments,omitempty"`
}

type Attachment struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Source      string `json:"source"`
	Description string `json:"description"`
	Text        string `json:"text,omitempty"`
}

// Response 动作回调内容，发往响应 topic
type Response struct {
	AgentID   string  `json:"agent_id"`
	RoomID    string  `json:"room_id"`
	InReplyTo string  `json:"in_reply_to"`
	Content   Content `json:"content"`
	CreatedAt int64   `json:"created_at"`
}
