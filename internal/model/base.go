package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// RecordState 记录状态：以显式状态列代替可空的删除时间戳
type RecordState string

const (
	StateLive    RecordState = "live"
	StateDeleted RecordState = "deleted"
)

// TombstoneModel 支持逻辑删除的审计字段
type TombstoneModel struct {
	BaseModel
	State RecordState `gorm:"type:varchar(10);not null;index" json:"-"`
}

// IsLive 记录是否未被删除
func (m TombstoneModel) IsLive() bool { return m.State != StateDeleted }

// Live 查询作用域：只返回未删除的记录
//
//	db.Scopes(model.Live).Find(&courts)
func Live(db *gorm.DB) *gorm.DB {
	return db.Where("state = ?", StateLive)
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func ensureLive(s *RecordState) {
	if *s == "" {
		*s = StateLive
	}
}
