// Package utils 放置各层共用的小类型。
package utils

import "strings"

// Label 记录某个 Node 对物品或请求做过什么，用于排查一条 Feed 的来源。
// Source 为打标阶段（recall / filter / rank / rerank）。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"`
}

// MergeLabel 合并同名 Label：Value 以 '|' 累积，Source 以 ',' 累积，
// 已出现过的片段不再重复追加，同一阶段多次打同一个标只保留一份。
func MergeLabel(existing, incoming Label) Label {
	return Label{
		Value:  appendPart(existing.Value, incoming.Value, "|"),
		Source: appendPart(existing.Source, incoming.Source, ","),
	}
}

// Values 拆出合并后的全部 Value 片段。
func (l Label) Values() []string {
	if l.Value == "" {
		return nil
	}
	return strings.Split(l.Value, "|")
}

func appendPart(joined, part, sep string) string {
	switch {
	case part == "":
		return joined
	case joined == "":
		return part
	}
	for _, p := range strings.Split(joined, sep) {
		if p == part {
			return joined
		}
	}
	return joined + sep + part
}
