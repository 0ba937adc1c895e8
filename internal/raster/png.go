// Package raster 把模型生成的 SVG 转换为 PNG。
package raster

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	"image/png"
	"math"
	"strconv"
	"strings"

	"genai-gateway/common"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Converter 矢量图转位图
type Converter interface {
	ToPNG(svg []byte) ([]byte, error)
}

// SVGRasterizer 基于 oksvg/rasterx 的纯 Go 实现
type SVGRasterizer struct {
	// viewBox 缺失时使用的正方形边长
	defaultSize int
	// 单边最大像素，超过时等比缩小
	maxSize int
}

var _ Converter = (*SVGRasterizer)(nil)

// NewSVGRasterizer 创建转换器，参数 <= 0 时使用默认值
func NewSVGRasterizer(defaultSize, maxSize int) *SVGRasterizer {
	if defaultSize <= 0 {
		defaultSize = 512
	}
	if maxSize <= 0 {
		maxSize = 4096
	}
	if defaultSize > maxSize {
		defaultSize = maxSize
	}
	return &SVGRasterizer{defaultSize: defaultSize, maxSize: maxSize}
}

// NewSVGRasterizerFromConfig 从配置创建转换器
func NewSVGRasterizerFromConfig(cfg *common.Config) *SVGRasterizer {
	return NewSVGRasterizer(cfg.RasterDefaultSize, cfg.RasterMaxSize)
}

// ToPNG 渲染 SVG 并编码为 PNG。画布优先使用根元素的 width/height，其次是 viewBox
func (r *SVGRasterizer) ToPNG(svg []byte) ([]byte, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svg), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse svg: %w", err)
	}

	width, height := intrinsicSize(svg, icon.ViewBox.W, icon.ViewBox.H)
	w, h := r.canvasSize(width, height)
	icon.SetTarget(0, 0, float64(w), float64(h))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}

	common.WithFields(map[string]interface{}{
		"width":  w,
		"height": h,
		"size":   buf.Len(),
	}).Debug("SVG rasterized")

	return buf.Bytes(), nil
}

func (r *SVGRasterizer) canvasSize(vw, vh float64) (int, int) {
	if vw <= 0 || vh <= 0 || math.IsNaN(vw) || math.IsNaN(vh) {
		return r.defaultSize, r.defaultSize
	}

	scale := 1.0
	if longest := math.Max(vw, vh); longest > float64(r.maxSize) {
		scale = float64(r.maxSize) / longest
	}

	w := int(math.Round(vw * scale))
	h := int(math.Round(vh * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// intrinsicSize 读取根元素的 width/height（只支持无单位或 px）。
// 只给出一边时按 viewBox 的宽高比推算另一边
func intrinsicSize(svg []byte, vw, vh float64) (float64, float64) {
	width, height := rootDimensions(svg)
	switch {
	case width > 0 && height > 0:
		return width, height
	case width > 0 && vw > 0 && vh > 0:
		return width, width * vh / vw
	case height > 0 && vw > 0 && vh > 0:
		return height * vw / vh, height
	default:
		return vw, vh
	}
}

func rootDimensions(svg []byte) (width, height float64) {
	decoder := xml.NewDecoder(bytes.NewReader(svg))
	decoder.Strict = false
	for {
		token, err := decoder.Token()
		if err != nil {
			return 0, 0
		}
		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case "width":
				width = parseLength(attr.Value)
			case "height":
				height = parseLength(attr.Value)
			}
		}
		return width, height
	}
}

// parseLength 百分比、em 等相对单位返回 0
func parseLength(value string) float64 {
	value = strings.TrimSuffix(strings.TrimSpace(value), "px")
	n, err := strconv.ParseFloat(value, 64)
	if err != nil || n <= 0 || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0
	}
	return n
}
