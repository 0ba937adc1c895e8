package utils

import "regexp"

// 从第一个 <svg 开始，到其后最近的 </svg> 结束；不区分大小写，. 可匹配换行
var svgFragmentPattern = regexp.MustCompile(`(?is)<svg.*?</svg>`)

// ExtractSVG 从模型输出中提取第一个 SVG 片段，找不到时返回空字符串。
// 不校验片段内部的标签是否平衡。
func ExtractSVG(text string) string {
	if text == "" {
		return ""
	}
	return svgFragmentPattern.FindString(text)
}
