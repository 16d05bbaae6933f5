package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// BaziTool computes a Four Pillars chart for a birth date and time
type BaziTool struct {
	client *YuanfenjuClient
}

// NewBaziTool creates the bazi_cesuan tool
func NewBaziTool(client *YuanfenjuClient) *BaziTool {
	return &BaziTool{client: client}
}

func (t *BaziTool) Name() string { return ToolBaziCesuan }

func (t *BaziTool) Description() string {
	return "只有做八字排盘的时候才会使用这个工具，需要输入用户姓名和出生年月日时，如果缺少用户姓名和出生年月日时则不可用。"
}

func (t *BaziTool) Parameters() map[string]interface{} {
	integer := func(desc string, min, max int) map[string]interface{} {
		return map[string]interface{}{
			"type":        "integer",
			"minimum":     min,
			"maximum":     max,
			"description": desc,
		}
	}
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"minLength":   1,
				"description": "姓名",
			},
			"sex":    integer("性别，0表示男，1表示女", 0, 1),
			"type":   integer("历类型，0表示农历，1表示公历，默认1", 0, 1),
			"year":   integer("出生年份，例如1998", 1900, 2100),
			"month":  integer("出生月份", 1, 12),
			"day":    integer("出生日期", 1, 31),
			"hours":  integer("出生小时", 0, 23),
			"minute": integer("出生分钟，默认0", 0, 59),
		},
		"required": []string{"name", "sex", "year", "month", "day", "hours"},
	}
}

func (t *BaziTool) Invoke(ctx context.Context, args map[string]interface{}) (string, error) {
	params := map[string]string{
		"name": strings.TrimSpace(stringArg(args, "name")),
		"type": "1",
	}
	if params["name"] == "" {
		return "", fmt.Errorf("name is required")
	}

	for _, key := range []string{"sex", "year", "month", "day", "hours"} {
		n, err := intArg(args, key)
		if err != nil {
			return "", err
		}
		params[key] = strconv.Itoa(n)
	}
	for _, key := range []string{"type", "minute"} {
		if _, ok := args[key]; !ok {
			continue
		}
		n, err := intArg(args, key)
		if err != nil {
			return "", err
		}
		params[key] = strconv.Itoa(n)
	}
	if _, ok := params["minute"]; !ok {
		params["minute"] = "0"
	}

	data, err := t.client.Call(ctx, EndpointBaziPaipan, params)
	if err != nil {
		return "", err
	}

	var chart struct {
		BaziInfo struct {
			BaziChart string `json:"bazi"`
		} `json:"bazi_info"`
	}
	if err := json.Unmarshal(data, &chart); err == nil && chart.BaziInfo.BaziChart != "" {
		return fmt.Sprintf("八字：%s\n排盘详情：%s", chart.BaziInfo.BaziChart, string(data)), nil
	}
	return string(data), nil
}

// YaoyiguaTool draws a random hexagram
type YaoyiguaTool struct {
	client *YuanfenjuClient
}

// NewYaoyiguaTool creates the yaoyigua tool
func NewYaoyiguaTool(client *YuanfenjuClient) *YaoyiguaTool {
	return &YaoyiguaTool{client: client}
}

func (t *YaoyiguaTool) Name() string { return ToolYaoyigua }

func (t *YaoyiguaTool) Description() string {
	return "只有用户想要占卜抽签的时候才会使用这个工具。"
}

func (t *YaoyiguaTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func (t *YaoyiguaTool) Invoke(ctx context.Context, args map[string]interface{}) (string, error) {
	data, err := t.client.Call(ctx, EndpointYaogua, nil)
	if err != nil {
		return "", err
	}

	var gua struct {
		Image       string `json:"image"`
		CommonDesc1 string `json:"common_desc1"`
		CommonDesc2 string `json:"common_desc2"`
		CommonDesc3 string `json:"common_desc3"`
	}
	if err := json.Unmarshal(data, &gua); err != nil {
		return string(data), nil
	}

	var parts []string
	for _, s := range []string{gua.CommonDesc1, gua.CommonDesc2, gua.CommonDesc3} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return string(data), nil
	}
	result := strings.Join(parts, "\n")
	if gua.Image != "" {
		result += "\n卦图：" + gua.Image
	}
	return result, nil
}

// JiemengTool interprets a dream by keyword using the Zhou Gong dictionary
type JiemengTool struct {
	client *YuanfenjuClient
}

// NewJiemengTool creates the jiemeng tool
func NewJiemengTool(client *YuanfenjuClient) *JiemengTool {
	return &JiemengTool{client: client}
}

func (t *JiemengTool) Name() string { return ToolJiemeng }

func (t *JiemengTool) Description() string {
	return "只有用户想要解梦的时候才会使用这个工具，需要输入用户梦境的内容，如果缺少用户梦境的内容则不可用。"
}

func (t *JiemengTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"keyword": map[string]interface{}{
				"type":        "string",
				"minLength":   1,
				"description": "梦境中的关键词，例如“蛇”",
			},
		},
		"required": []string{"keyword"},
	}
}

func (t *JiemengTool) Invoke(ctx context.Context, args map[string]interface{}) (string, error) {
	keyword := strings.TrimSpace(stringArg(args, "keyword"))
	if keyword == "" {
		return "", fmt.Errorf("keyword is required")
	}

	data, err := t.client.Call(ctx, EndpointZhougong, map[string]string{
		"title_zhougong": keyword,
	})
	if err != nil {
		return "", err
	}

	var entries []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &entries); err != nil || len(entries) == 0 {
		return string(data), nil
	}

	var b strings.Builder
	for i, e := range entries {
		if i == 3 {
			break
		}
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s：%s", e.Title, strings.TrimSpace(e.Content))
	}
	return b.String(), nil
}
