package service

import (
	"image"
	"image/color"
	"image/draw"
	"io"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Naveen-Pal/timetable-2024-25/internal/model"
)

// 栅格布局参数（像素）
const (
	imgTimeColWidth = 110
	imgDayColWidth  = 180
	imgHeaderHeight = 28
	imgPadding      = 6
	imgLineHeight   = 15
	imgMaxLines     = 4
)

var (
	imgBackground = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	imgHeaderFill = color.RGBA{R: 0x44, G: 0x72, B: 0xC4, A: 0xFF}
	imgTimeFill   = color.RGBA{R: 0xF2, G: 0xF2, B: 0xF2, A: 0xFF}
	imgClassFill  = color.RGBA{R: 0xDD, G: 0xEB, B: 0xF7, A: 0xFF}
	imgClashFill  = color.RGBA{R: 0xFF, G: 0xC7, B: 0xCE, A: 0xFF}
	imgGridLine   = color.RGBA{R: 0xBF, G: 0xBF, B: 0xBF, A: 0xFF}
	imgText       = color.RGBA{R: 0x1F, G: 0x1F, B: 0x1F, A: 0xFF}
	imgHeaderText = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	imgClashText  = color.RGBA{R: 0x9C, G: 0x00, B: 0x06, A: 0xFF}
)

// imageExporter 将行矩阵绘制为栅格图片（png / jpeg / webp）
type imageExporter struct {
	encoding string
}

// NewImageExporter 创建图片导出策略，encoding 为 png | jpeg | webp，空值为 png
func NewImageExporter(encoding string) ExportStrategy {
	switch encoding {
	case "jpeg", "webp":
	default:
		encoding = "png"
	}
	return &imageExporter{encoding: encoding}
}

func (e *imageExporter) Format() string { return "image" }

func (e *imageExporter) Extension() string {
	if e.encoding == "jpeg" {
		return "jpg"
	}
	return e.encoding
}

func (e *imageExporter) ContentType() string {
	return "image/" + e.encoding
}

func (e *imageExporter) Render(w io.Writer, grid *model.GridModel) error {
	img := RenderGridImage(grid)
	switch e.encoding {
	case "webp":
		return webp.Encode(w, img, &webp.Options{Lossless: true})
	case "jpeg":
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(90))
	default:
		return imaging.Encode(w, img, imaging.PNG)
	}
}

// RenderGridImage 绘制网格：表头一行，每个时间标签一行，冲突单元格以红色底标出
func RenderGridImage(grid *model.GridModel) *image.NRGBA {
	rows, clash := toRowsWithClash(grid, false)
	face := basicfont.Face7x13

	rowHeight := imgPadding*2 + imgLineHeight*imgMaxLines
	width := imgTimeColWidth + imgDayColWidth*len(model.Weekdays) + 1
	height := imgHeaderHeight + rowHeight*(len(rows)-1) + 1

	img := imaging.New(width, height, imgBackground)

	colX := func(c int) int {
		if c == 0 {
			return 0
		}
		return imgTimeColWidth + imgDayColWidth*(c-1)
	}
	colW := func(c int) int {
		if c == 0 {
			return imgTimeColWidth
		}
		return imgDayColWidth
	}

	y := 0
	for r, row := range rows {
		h := rowHeight
		if r == 0 {
			h = imgHeaderHeight
		}
		for c, text := range row {
			rect := image.Rect(colX(c), y, colX(c)+colW(c), y+h)
			fill, ink := cellColors(r, c, text, clash[r][c])
			draw.Draw(img, rect, image.NewUniform(fill), image.Point{}, draw.Src)
			strokeRect(img, rect, imgGridLine)

			lines := []string{text}
			if r > 0 && c > 0 {
				lines = wrapDescriptor(text, face, colW(c)-imgPadding*2)
				if clash[r][c] {
					lines = append(lines[:min(len(lines), imgMaxLines-1)], ClashMarker)
				}
			}
			drawLines(img, face, ink, rect, lines)
		}
		y += h
	}
	return img
}

func cellColors(r, c int, text string, isClash bool) (fill, ink color.Color) {
	switch {
	case r == 0:
		return imgHeaderFill, imgHeaderText
	case c == 0:
		return imgTimeFill, imgText
	case isClash:
		return imgClashFill, imgClashText
	case text != "":
		return imgClassFill, imgText
	}
	return imgBackground, imgText
}

func strokeRect(img draw.Image, r image.Rectangle, c color.Color) {
	for x := r.Min.X; x <= r.Max.X && x < img.Bounds().Max.X; x++ {
		img.Set(x, r.Min.Y, c)
		if r.Max.Y < img.Bounds().Max.Y {
			img.Set(x, r.Max.Y, c)
		}
	}
	for y := r.Min.Y; y <= r.Max.Y && y < img.Bounds().Max.Y; y++ {
		img.Set(r.Min.X, y, c)
		if r.Max.X < img.Bounds().Max.X {
			img.Set(r.Max.X, y, c)
		}
	}
}

func drawLines(img draw.Image, face font.Face, ink color.Color, rect image.Rectangle, lines []string) {
	d := &font.Drawer{Dst: img, Src: image.NewUniform(ink), Face: face}
	ascent := face.Metrics().Ascent.Ceil()
	for i, line := range lines {
		if i >= imgMaxLines {
			break
		}
		d.Dot = fixed.P(rect.Min.X+imgPadding, rect.Min.Y+imgPadding+ascent+i*imgLineHeight)
		d.DrawString(line)
	}
}

// wrapDescriptor 每个描述字段一行，超宽部分截断
func wrapDescriptor(text string, face font.Face, maxWidth int) []string {
	if text == "" {
		return nil
	}
	var lines []string
	for _, part := range strings.Split(text, ", ") {
		lines = append(lines, fitWidth(part, face, maxWidth))
		if len(lines) == imgMaxLines {
			break
		}
	}
	return lines
}

func fitWidth(s string, face font.Face, maxWidth int) string {
	limit := fixed.I(maxWidth)
	if font.MeasureString(face, s) <= limit {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && font.MeasureString(face, string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
