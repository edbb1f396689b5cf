package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"turnero-padel/backend/config"
	"turnero-padel/backend/internal/model"
	"turnero-padel/backend/internal/repository"
	"turnero-padel/backend/internal/schedule"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成导出文件失败")

// ExportService 导出业务接口
//
//   - 预订报表导出为 Excel (.xlsx)，以 bytes.Buffer 返回，由 Handler 设置下载响应头
//   - 场地日历导出为 iCalendar 文本，仅包含未取消的预订
type ExportService interface {
	ExportBookings(ctx context.Context, tenantID, from, to string) (*bytes.Buffer, string, error)
	CourtCalendar(ctx context.Context, tenantID, courtID, from, to string) (string, error)
}

type exportService struct {
	cfg    *config.BookingConfig
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(cfg *config.BookingConfig, repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{cfg: cfg, repo: repo, logger: logger}
}

var statusNames = map[string]string{
	model.BookingStatusPending:   "待支付",
	model.BookingStatusConfirmed: "已确认",
	model.BookingStatusActive:    "进行中",
	model.BookingStatusCompleted: "已完成",
	model.BookingStatusCancelled: "已取消",
}

var paymentNames = map[string]string{
	model.PaymentStatusPending:  "未支付",
	model.PaymentStatusPaid:     "已支付",
	model.PaymentStatusRefunded: "已退款",
}

// label 未登记的状态原样输出
func label(names map[string]string, v string) string {
	if n, ok := names[v]; ok {
		return n
	}
	return v
}

// ═══════════════════════════════════════════════════════════
// ExportBookings 导出预订报表
// ═══════════════════════════════════════════════════════════
//
// 一行一个预订（含已取消），按日期、场地、开始时间排序；
// 末行汇总未取消预订的金额。

func (s *exportService) ExportBookings(ctx context.Context, tenantID, from, to string) (*bytes.Buffer, string, error) {
	if _, _, err := dateRange(from, to, s.cfg.Location()); err != nil {
		return nil, "", err
	}

	courts, err := s.repo.Court.ListByTenant(ctx, tenantID)
	if err != nil {
		s.logger.Error("查询场地列表失败", zap.Error(err))
		return nil, "", err
	}
	courtNames := make(map[string]string, len(courts))
	for _, c := range courts {
		courtNames[c.ID] = c.Name
	}

	bookings, err := s.repo.Booking.ListInRange(ctx, repository.RangeQuery{TenantID: tenantID, From: from, To: to})
	if err != nil {
		s.logger.Error("查询预订失败", zap.Error(err))
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "预订报表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []string{"日期", "场地", "开始", "结束", "状态", "支付状态", "金额", "周期预订", "用户", "取消原因"}
	widths := []float64{12, 18, 8, 8, 10, 10, 12, 10, 38, 24}
	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("预订报表 %s ~ %s", from, to))
	f.MergeCell(sheetName, "A1", cell(colName(len(headers)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), row), h)
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(colName(len(headers)-1), row), headerStyle)

	// 数据行
	total := decimal.Zero
	row = 3
	for i := range bookings {
		b := &bookings[i]
		name := courtNames[b.CourtID]
		if name == "" {
			name = b.CourtID
		}
		recurring := "否"
		if b.RecurringID != nil {
			recurring = "是"
		}
		reason := ""
		if b.CancellationReason != nil {
			reason = *b.CancellationReason
		}
		values := []interface{}{
			b.BookingDate, name, b.StartTime, b.EndTime,
			label(statusNames, b.Status), label(paymentNames, b.PaymentStatus), b.Price.StringFixed(2),
			recurring, b.UserID, reason,
		}
		for col, v := range values {
			f.SetCellValue(sheetName, cell(colName(col), row), v)
		}
		if b.Status != model.BookingStatusCancelled {
			total = total.Add(b.Price)
		}
		row++
	}

	// 汇总行
	f.SetCellValue(sheetName, cell("F", row), "合计")
	f.SetCellValue(sheetName, cell("G", row), total.StringFixed(2))

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("预订报表_%s_%s.xlsx", from, to)
	return buf, filename, nil
}

// CourtCalendar 场地在 [from, to] 内的预订日历
func (s *exportService) CourtCalendar(ctx context.Context, tenantID, courtID, from, to string) (string, error) {
	loc := s.cfg.Location()
	if _, _, err := dateRange(from, to, loc); err != nil {
		return "", err
	}

	court, err := s.repo.Court.GetByID(ctx, tenantID, courtID)
	if err != nil {
		if isNotFound(err) {
			return "", ErrCourtNotFound
		}
		s.logger.Error("查询场地失败", zap.String("court_id", courtID), zap.Error(err))
		return "", err
	}

	bookings, err := s.repo.Booking.ListActiveInRange(ctx, repository.RangeQuery{
		TenantID: tenantID,
		CourtID:  courtID,
		From:     from,
		To:       to,
	})
	if err != nil {
		s.logger.Error("查询预订失败", zap.String("court_id", courtID), zap.Error(err))
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//turnero-padel//court calendar//ES")
	cal.SetName(court.Name)
	cal.SetXWRTimezone(loc.String())

	stamp := time.Now().UTC()
	for i := range bookings {
		b := &bookings[i]
		day, err := schedule.ParseDate(b.BookingDate, loc)
		if err != nil {
			continue
		}
		iv, ok := bookingInterval(b)
		if !ok {
			continue
		}

		event := cal.AddEvent(b.ID + "@turnero-padel")
		event.SetDtStampTime(stamp)
		event.SetStartAt(day.Add(time.Duration(iv.Start) * time.Minute))
		event.SetEndAt(day.Add(time.Duration(iv.End) * time.Minute))
		event.SetSummary(fmt.Sprintf("%s %s-%s", court.Name, b.StartTime, b.EndTime))
		event.SetLocation(court.Name)
		if b.Status == model.BookingStatusConfirmed {
			event.SetStatus(ics.ObjectStatusConfirmed)
		} else {
			event.SetStatus(ics.ObjectStatusTentative)
		}
		if b.RecurringID != nil {
			event.SetDescription("周期预订")
		}
	}
	return cal.Serialize(), nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
