package service

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"turnero-padel/backend/internal/dto"
	"turnero-padel/backend/internal/model"
	"turnero-padel/backend/internal/repository"
	"turnero-padel/backend/internal/schedule"
)

// 租户未配置时的默认值
const (
	DefaultOpenTime     = "08:00"
	DefaultCloseTime    = "23:00"
	DefaultSlotDuration = 90
)

// OperatingHours 解析后的营业设置
type OperatingHours struct {
	Hours        schedule.Interval
	SlotDuration int
}

// DefaultOperatingHours 默认营业设置
func DefaultOperatingHours() OperatingHours {
	open, _ := schedule.ParseClock(DefaultOpenTime)
	closing, _ := schedule.ParseClock(DefaultCloseTime)
	return OperatingHours{Hours: schedule.Interval{Start: open, End: closing}, SlotDuration: DefaultSlotDuration}
}

// SettingsService 租户设置接口
type SettingsService interface {
	// GetOperatingHours 读取营业设置；缺失、无效或查询失败时使用默认值，不返回错误
	GetOperatingHours(ctx context.Context, tenantID string) OperatingHours
	Get(ctx context.Context, tenantID string) *dto.OperatingSettings
	Update(ctx context.Context, tenantID string, req *dto.UpdateSettingRequest) (*dto.OperatingSettings, error)
}

type settingsService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSettingsService 创建 SettingsService 实例
func NewSettingsService(repo *repository.Repository, logger *zap.Logger) SettingsService {
	return &settingsService{repo: repo, logger: logger}
}

func (s *settingsService) GetOperatingHours(ctx context.Context, tenantID string) OperatingHours {
	out := DefaultOperatingHours()
	if tenantID == "" {
		return out
	}

	list, err := s.repo.Setting.ListByTenant(ctx, tenantID)
	if err != nil {
		s.logger.Warn("读取租户设置失败，使用默认值", zap.String("tenant_id", tenantID), zap.Error(err))
		return out
	}

	hours := out.Hours
	for _, st := range list {
		switch st.Key {
		case model.SettingOperatingHoursStart:
			if v, err := schedule.ParseClock(st.Value); err == nil {
				hours.Start = v
			} else {
				s.logger.Warn("营业开始时间无效", zap.String("tenant_id", tenantID), zap.String("value", st.Value))
			}
		case model.SettingOperatingHoursEnd:
			if v, err := schedule.ParseClock(st.Value); err == nil {
				hours.End = v
			} else {
				s.logger.Warn("营业结束时间无效", zap.String("tenant_id", tenantID), zap.String("value", st.Value))
			}
		case model.SettingSlotDuration:
			if v, err := strconv.Atoi(st.Value); err == nil && v > 0 {
				out.SlotDuration = v
			} else {
				s.logger.Warn("时段时长无效", zap.String("tenant_id", tenantID), zap.String("value", st.Value))
			}
		}
	}
	if hours.Empty() {
		s.logger.Warn("营业时间区间为空，使用默认值", zap.String("tenant_id", tenantID))
		return out
	}
	out.Hours = hours
	return out
}

func (s *settingsService) Get(ctx context.Context, tenantID string) *dto.OperatingSettings {
	oh := s.GetOperatingHours(ctx, tenantID)
	return &dto.OperatingSettings{
		OpenTime:     oh.Hours.StartClock(),
		CloseTime:    oh.Hours.EndClock(),
		SlotDuration: oh.SlotDuration,
	}
}

func (s *settingsService) Update(ctx context.Context, tenantID string, req *dto.UpdateSettingRequest) (*dto.OperatingSettings, error) {
	switch req.Key {
	case model.SettingOperatingHoursStart, model.SettingOperatingHoursEnd:
		if _, err := schedule.ParseClock(req.Value); err != nil {
			return nil, ErrInvalidSetting
		}
	case model.SettingSlotDuration:
		v, err := strconv.Atoi(req.Value)
		if err != nil || v < 15 || v > 240 {
			return nil, ErrInvalidSetting
		}
	default:
		return nil, ErrInvalidSetting
	}

	if err := s.repo.Setting.Upsert(ctx, &model.SystemSetting{TenantID: tenantID, Key: req.Key, Value: req.Value}); err != nil {
		s.logger.Error("保存租户设置失败", zap.String("tenant_id", tenantID), zap.Error(err))
		return nil, err
	}
	return s.Get(ctx, tenantID), nil
}
