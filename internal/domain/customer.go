package domain

import "time"

type CustomerStatus string

const (
	StatusLead          CustomerStatus = "Lead"
	StatusContacted     CustomerStatus = "Contacted"
	StatusNeedsAnalyzed CustomerStatus = "NeedsAnalyzed"
	StatusQuoted        CustomerStatus = "Quoted"
	StatusNegotiating   CustomerStatus = "Negotiating"
	StatusWon           CustomerStatus = "Won"
	StatusLost          CustomerStatus = "Lost"
)

type CustomerSource string

const (
	SourceWebsite       CustomerSource = "Website"
	SourceReferral      CustomerSource = "Referral"
	SourceSocialMedia   CustomerSource = "SocialMedia"
	SourceEvent         CustomerSource = "Event"
	SourceDirectContact CustomerSource = "DirectContact"
	SourceOther         CustomerSource = "Other"
)

// Customer 客户档案。LastInteractionAt 为派生字段，只能由互动记录的
// 创建/删除事务写入，客户自己的更新请求不允许携带它。
// 活跃名字对的唯一性由部分唯一索引兜底：事务内的预检查挡常规路径，
// 并发窗口里漏进来的插入在提交时撞索引。where 条件仅 postgres 支持，
// mysql 部署需要手工等价物（见 DESIGN.md）。
type Customer struct {
	ID                string         `gorm:"primaryKey;size:36" json:"id"`
	CompanyName       string         `gorm:"size:200;not null;uniqueIndex:uq_customers_active_name,where:is_deleted = false" json:"companyName"`
	ContactName       string         `gorm:"size:200;not null;uniqueIndex:uq_customers_active_name,where:is_deleted = false" json:"contactName"`
	Wechat            string         `gorm:"size:100" json:"wechat,omitempty"`
	Phone             string         `gorm:"size:50" json:"phone,omitempty"`
	Email             string         `gorm:"size:200" json:"email,omitempty"`
	Industry          string         `gorm:"size:100" json:"industry,omitempty"`
	Source            CustomerSource `gorm:"size:32" json:"source,omitempty"`
	Status            CustomerStatus `gorm:"size:32;not null;index" json:"status"`
	Tags              StringList     `gorm:"type:text" json:"tags"`
	Score             int            `gorm:"not null;default:0" json:"score"`
	LastInteractionAt *time.Time     `gorm:"index" json:"lastInteractionAt,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	IsDeleted         bool           `gorm:"not null;default:false;index" json:"-"`
}

func (Customer) TableName() string { return "customers" }

// CustomerSearch 列表查询条件。PageSize 超过上限由入口校验拒绝，这里只做兜底默认值。
type CustomerSearch struct {
	Keyword   string
	Status    CustomerStatus
	Source    CustomerSource
	Industry  string
	Page      int
	PageSize  int
	SortBy    string // LastInteractionAt / CreatedAt / UpdatedAt
	SortOrder string // asc / desc
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

func (q *CustomerSearch) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.SortBy == "" {
		q.SortBy = "CreatedAt"
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}
