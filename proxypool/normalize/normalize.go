// Package normalize 从原始文本块中提取 "ip:port" 候选代理。
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"proxysieve/internal/shared/logger"
	"proxysieve/proxypool/model"
)

var (
	lineSplitRe = regexp.MustCompile(`[\r\n]+`)

	// 行尾的 a.b.c.d:port, 前面不能紧跟数字或点, 避免截取 "11.2.3.4.5:80" 这类残片。
	tokenRe = regexp.MustCompile(`(?:^|[^\d.])(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}):(\d{1,5})$`)
)

// Normalize 合并所有文本块, 按首次出现顺序去重, 丢弃格式不正确的行。
func Normalize(blocks []string) []model.ProxyCandidate {
	l := logger.WithComponent("ProxyPool/Normalizer")

	seen := make(map[string]struct{})
	var out []model.ProxyCandidate
	for i, block := range blocks {
		matched, added := 0, 0
		for _, line := range lineSplitRe.Split(block, -1) {
			c, ok := ParseLine(line)
			if !ok {
				continue
			}
			matched++
			if _, dup := seen[c.ID()]; dup {
				continue
			}
			seen[c.ID()] = struct{}{}
			out = append(out, c)
			added++
		}
		l.Debug().Int("block", i).Int("matched", matched).Int("added", added).Msg("Normalized source block.")
	}
	return out
}

// ParseLine 解析单行, 成功时返回候选代理。
func ParseLine(line string) (model.ProxyCandidate, bool) {
	m := tokenRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return model.ProxyCandidate{}, false
	}
	for _, octet := range strings.Split(m[1], ".") {
		if n, err := strconv.Atoi(octet); err != nil || n > 255 {
			return model.ProxyCandidate{}, false
		}
	}
	port, err := strconv.Atoi(m[2])
	if err != nil || port < 1 || port > 65535 {
		return model.ProxyCandidate{}, false
	}
	return model.NewProxyCandidate(m[1], m[2], port), true
}
