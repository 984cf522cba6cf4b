package domain

import "time"

type InteractionChannel string

const (
	ChannelPhone   InteractionChannel = "Phone"
	ChannelWechat  InteractionChannel = "Wechat"
	ChannelEmail   InteractionChannel = "Email"
	ChannelOffline InteractionChannel = "Offline"
	ChannelOther   InteractionChannel = "Other"
)

// Interaction 互动记录，归属且仅归属一个客户。HappenedAt 统一存 UTC。
// 删除是物理删除；客户被软删后其互动记录保留，仍可单条查询。
type Interaction struct {
	ID          string             `gorm:"primaryKey;size:36" json:"id"`
	CustomerID  string             `gorm:"size:36;not null;index:idx_interactions_customer_happened" json:"customerId"`
	HappenedAt  time.Time          `gorm:"not null;index:idx_interactions_customer_happened" json:"happenedAt"`
	Channel     InteractionChannel `gorm:"size:32;not null" json:"channel"`
	Stage       *CustomerStatus    `gorm:"size:32" json:"stage,omitempty"`
	Title       string             `gorm:"size:200;not null" json:"title"`
	Summary     string             `gorm:"size:2000" json:"summary,omitempty"`
	RawContent  string             `gorm:"type:text" json:"rawContent,omitempty"`
	NextAction  string             `gorm:"size:500" json:"nextAction,omitempty"`
	Attachments StringList         `gorm:"type:text" json:"attachments,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

func (Interaction) TableName() string { return "interactions" }
