package export

import (
	"context"

	"go.uber.org/zap"

	"github.com/nikk909/Document-Management-System-DMS/internal/parallel"
	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

// BatchTask 是批量导出中的一项：独立的数据来源与导出选项。
type BatchTask struct {
	Input   interface{}
	Options docmodel.ExportOptions
}

// ExportBatch 并行执行全部任务，结果顺序与任务顺序一一对应。
// 单个任务失败不影响其他任务。onDone 非空时按完成顺序回调。
func (d *DocumentExporter) ExportBatch(ctx context.Context, tasks []BatchTask, onDone func(index int, result *docmodel.ExportResult)) []*docmodel.ExportResult {
	pts := make([]parallel.Task[BatchTask], len(tasks))
	for i, task := range tasks {
		pts[i] = parallel.Task[BatchTask]{Index: i, Payload: task}
	}

	var onResult func(parallel.Result[*docmodel.ExportResult])
	if onDone != nil {
		onResult = func(res parallel.Result[*docmodel.ExportResult]) {
			onDone(res.Index, res.Value)
		}
	}

	results := parallel.ProcessBatch(ctx, pts,
		func(ctx context.Context, task BatchTask) (*docmodel.ExportResult, error) {
			return d.Export(ctx, task.Input, task.Options), nil
		},
		parallel.Options[*docmodel.ExportResult]{
			MaxWorkers: d.cfg.MaxWorkers,
			OnResult:   onResult,
			Log:        d.log,
		})

	out := make([]*docmodel.ExportResult, len(tasks))
	succeeded := 0
	for i := range tasks {
		res := results[i]
		if res.Value == nil {
			// 任务被取消或未执行，补失败占位
			out[i] = &docmodel.ExportResult{
				Status:   docmodel.StatusFailed,
				Metadata: map[string]interface{}{"error": errMessage(res.Err)},
			}
			continue
		}
		out[i] = res.Value
		if res.Value.Status == docmodel.StatusSuccess {
			succeeded++
		}
	}
	d.log.Info("批量导出完成",
		zap.Int("total", len(tasks)), zap.Int("succeeded", succeeded))
	return out
}

func errMessage(err error) string {
	if err == nil {
		return "任务未执行"
	}
	return err.Error()
}
