package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"queue-dispatch/internal/model"
	"queue-dispatch/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportInvalidDate  = errors.New("日期格式错误，应为 YYYY-MM-DD")
	ErrExportNoRequests   = errors.New("该日期没有排队记录")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 按营业日导出全部请求（含已完成历史）为 Excel (.xlsx)
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
//   - Sheet "明细" 每行一个请求；Sheet "汇总" 按类型统计各状态数量与平均等待
type ExportService interface {
	// ExportHistory 导出某营业日的排队记录；date 为空表示当天
	ExportHistory(ctx context.Context, date string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, loc: loc, now: time.Now, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportHistory — 导出营业日排队记录
// ═══════════════════════════════════════════════════════════
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportHistory(ctx context.Context, date string) (*bytes.Buffer, string, error) {
	// 1. 解析营业日
	day := s.now().In(s.loc)
	if date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", date, s.loc)
		if err != nil {
			return nil, "", ErrExportInvalidDate
		}
		day = parsed
	}
	period := model.DayPeriod(day, s.loc)

	// 2. 查询记录
	reqs, err := s.repo.Request.ListByPeriod(ctx, period)
	if err != nil {
		s.logger.Error("查询排队记录失败", zap.Error(err))
		return nil, "", err
	}
	if len(reqs) == 0 {
		return nil, "", ErrExportNoRequests
	}

	// 3. 服务点名称
	spNames := make(map[string]string)
	sps, err := s.repo.ServicePoint.List(ctx)
	if err != nil {
		s.logger.Warn("查询服务点失败，导出中使用 ID", zap.Error(err))
	}
	for _, sp := range sps {
		spNames[sp.ServicePointID] = sp.Name
	}

	// 4. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	const detailSheet = "明细"
	const summarySheet = "汇总"
	idx, _ := f.NewSheet(detailSheet)
	f.SetActiveSheet(idx)
	f.NewSheet(summarySheet)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	headers := []string{"号码", "类型", "状态", "服务点", "取号时间", "叫号时间", "完成时间", "等待(分钟)"}
	for i, h := range headers {
		f.SetCellValue(detailSheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(detailSheet, "A1", cell(colName(len(headers)-1), 1), headerStyle)
	f.SetColWidth(detailSheet, "A", "A", 8)
	f.SetColWidth(detailSheet, "B", "D", 14)
	f.SetColWidth(detailSheet, "E", "G", 20)

	type typeStat struct {
		counts    map[model.RequestStatus]int
		waitTotal time.Duration
		called    int
	}
	stats := make(map[string]*typeStat)
	var typeOrder []string

	for i, r := range reqs {
		row := i + 2
		spName := "-"
		if r.AssignedServicePointID != nil {
			spName = *r.AssignedServicePointID
			if name, ok := spNames[spName]; ok {
				spName = name
			}
		}

		f.SetCellValue(detailSheet, cell("A", row), r.Number)
		f.SetCellValue(detailSheet, cell("B", row), r.TypeCode)
		f.SetCellValue(detailSheet, cell("C", row), statusLabel(r.Status))
		f.SetCellValue(detailSheet, cell("D", row), spName)
		f.SetCellValue(detailSheet, cell("E", row), formatLocal(&r.CreatedAt, s.loc))
		f.SetCellValue(detailSheet, cell("F", row), formatLocal(r.CalledAt, s.loc))
		f.SetCellValue(detailSheet, cell("G", row), formatLocal(r.CompletedAt, s.loc))

		st, ok := stats[r.TypeCode]
		if !ok {
			st = &typeStat{counts: make(map[model.RequestStatus]int)}
			stats[r.TypeCode] = st
			typeOrder = append(typeOrder, r.TypeCode)
		}
		st.counts[r.Status]++

		if r.CalledAt != nil {
			wait := r.CalledAt.Sub(r.CreatedAt)
			f.SetCellValue(detailSheet, cell("H", row), int(wait.Minutes()))
			st.waitTotal += wait
			st.called++
		} else {
			f.SetCellValue(detailSheet, cell("H", row), "-")
		}
	}

	// 汇总
	summaryHeaders := []string{"类型", "等待中", "服务中", "已完成", "已跳过", "平均等待(分钟)"}
	for i, h := range summaryHeaders {
		f.SetCellValue(summarySheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(summarySheet, "A1", cell(colName(len(summaryHeaders)-1), 1), headerStyle)
	for i, code := range typeOrder {
		row := i + 2
		st := stats[code]
		f.SetCellValue(summarySheet, cell("A", row), code)
		f.SetCellValue(summarySheet, cell("B", row), st.counts[model.StatusWaiting])
		f.SetCellValue(summarySheet, cell("C", row), st.counts[model.StatusActive])
		f.SetCellValue(summarySheet, cell("D", row), st.counts[model.StatusCompleted])
		f.SetCellValue(summarySheet, cell("E", row), st.counts[model.StatusSkipped])
		if st.called > 0 {
			f.SetCellValue(summarySheet, cell("F", row), int((st.waitTotal / time.Duration(st.called)).Minutes()))
		} else {
			f.SetCellValue(summarySheet, cell("F", row), "-")
		}
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("排队记录_%s.xlsx", period.Start.Format("2006-01-02"))
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func formatLocal(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	return t.In(loc).Format("2006-01-02 15:04:05")
}

func statusLabel(s model.RequestStatus) string {
	switch s {
	case model.StatusWaiting:
		return "等待中"
	case model.StatusActive:
		return "服务中"
	case model.StatusCompleted:
		return "已完成"
	case model.StatusSkipped:
		return "已跳过"
	}
	return string(s)
}
