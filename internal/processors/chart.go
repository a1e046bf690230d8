package processors

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

// ParseChartSpec 解析图表载荷。按优先级兼容三种形态：
//
//  1. series + labels：{"series":[{"data":[..]}],"labels":[..]}
//  2. 点列表：{"data":[{"x":..,"y":..} 或 {"label":..,"value":..}]}
//  3. x/y 数组：{"data":{"x":[..],"y":[..]}} 或顶层 x/y
func ParseChartSpec(payload map[string]interface{}) (*docmodel.ChartSpec, error) {
	if payload == nil {
		return nil, fmt.Errorf("图表配置为空")
	}

	spec := &docmodel.ChartSpec{Type: "line"}
	if t, ok := payload["type"].(string); ok && t != "" {
		spec.Type = t
	}

	// 标题与轴名可以出现在顶层或 data 子对象里
	applyLabels := func(m map[string]interface{}) {
		if s, ok := m["title"].(string); ok && s != "" {
			spec.Title = s
		}
		if s, ok := m["x_label"].(string); ok && s != "" {
			spec.XLabel = s
		}
		if s, ok := m["y_label"].(string); ok && s != "" {
			spec.YLabel = s
		}
	}
	applyLabels(payload)

	parsed := false

	// 形态 1：series + labels
	if seriesList, ok := payload["series"].([]interface{}); ok && len(seriesList) > 0 {
		if first, ok := seriesList[0].(map[string]interface{}); ok {
			points, _ := first["points"].([]interface{})
			if points == nil {
				points, _ = first["data"].([]interface{})
			}
			for _, pt := range points {
				if f, ok := toFloat(pt); ok {
					spec.Y = append(spec.Y, f)
				}
			}
			if labels, ok := payload["labels"].([]interface{}); ok {
				for _, l := range labels {
					spec.X = append(spec.X, fmt.Sprintf("%v", l))
				}
			}
			parsed = len(spec.Y) > 0
		}
	}

	if !parsed {
		switch data := payload["data"].(type) {
		case []interface{}:
			// 形态 2：点列表
			for _, item := range data {
				pt, ok := item.(map[string]interface{})
				if !ok {
					continue
				}
				x := pt["x"]
				if x == nil {
					x = pt["label"]
				}
				y := pt["y"]
				if y == nil {
					y = pt["value"]
				}
				if f, ok := toFloat(y); ok {
					spec.X = append(spec.X, fmt.Sprintf("%v", x))
					spec.Y = append(spec.Y, f)
				}
			}
			parsed = len(spec.Y) > 0
		case map[string]interface{}:
			// 形态 3：x/y 数组
			applyLabels(data)
			xs, _ := data["x"].([]interface{})
			ys, _ := data["y"].([]interface{})
			for _, y := range ys {
				if f, ok := toFloat(y); ok {
					spec.Y = append(spec.Y, f)
				}
			}
			for _, x := range xs {
				spec.X = append(spec.X, fmt.Sprintf("%v", x))
			}
			parsed = len(spec.Y) > 0
		}
	}

	if !parsed {
		// 顶层 x/y 数组兜底
		xs, _ := payload["x"].([]interface{})
		ys, _ := payload["y"].([]interface{})
		for _, y := range ys {
			if f, ok := toFloat(y); ok {
				spec.Y = append(spec.Y, f)
			}
		}
		for _, x := range xs {
			spec.X = append(spec.X, fmt.Sprintf("%v", x))
		}
		parsed = len(spec.Y) > 0
	}

	if !parsed {
		return nil, fmt.Errorf("图表配置没有可用数据")
	}

	// 补齐 X 轴
	for len(spec.X) < len(spec.Y) {
		spec.X = append(spec.X, fmt.Sprintf("%d", len(spec.X)+1))
	}
	spec.X = spec.X[:len(spec.Y)]

	if spec.Title == "" {
		if spec.Type == "bar" {
			spec.Title = "Bar Chart"
		} else {
			spec.Title = "Line Chart"
		}
	}
	if spec.XLabel == "" {
		spec.XLabel = "X Axis"
	}
	if spec.YLabel == "" {
		spec.YLabel = "Y Axis"
	}
	return spec, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

// RenderChartPNG 把解析后的图表渲染为 PNG。
func RenderChartPNG(spec *docmodel.ChartSpec) ([]byte, error) {
	if spec == nil || len(spec.Y) == 0 {
		return nil, fmt.Errorf("图表没有数据")
	}

	var buf bytes.Buffer

	if spec.Type == "bar" {
		bars := make([]chart.Value, 0, len(spec.Y))
		for i, y := range spec.Y {
			bars = append(bars, chart.Value{Value: y, Label: spec.X[i]})
		}
		bc := chart.BarChart{
			Title:    spec.Title,
			Width:    1000,
			Height:   600,
			BarWidth: 40,
			Bars:     bars,
		}
		if err := bc.Render(chart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("渲染柱状图失败: %w", err)
		}
		return buf.Bytes(), nil
	}

	xs := make([]float64, len(spec.Y))
	ticks := make([]chart.Tick, 0, len(spec.Y))
	for i := range spec.Y {
		xs[i] = float64(i)
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: spec.X[i]})
	}

	lc := chart.Chart{
		Title:  spec.Title,
		Width:  1000,
		Height: 600,
		XAxis: chart.XAxis{
			Name:  spec.XLabel,
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name: spec.YLabel,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: xs,
				YValues: spec.Y,
			},
		},
	}
	if err := lc.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("渲染折线图失败: %w", err)
	}
	return buf.Bytes(), nil
}
