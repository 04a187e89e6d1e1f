// Package specsheet renders product spec sheets as PDF documents.
package specsheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// AttributeGroup lists the values a product carries for one attribute.
type AttributeGroup struct {
	Name   string
	Values []string
}

// Image is an embeddable picture. Type is "JPG" or "PNG".
type Image struct {
	Type string
	Data []byte
}

// Document is the content of a spec sheet.
type Document struct {
	Title        string
	SKU          string
	Price        string
	Status       string
	Description  string
	CategoryPath []string
	Attributes   []AttributeGroup
	Materials    []string
	Components   []string
	Image        *Image
	GeneratedAt  time.Time
}

const (
	pageMargin = 15.0
	lineHeight = 6.0
	labelWidth = 40.0
)

// ImageType maps a file extension to the fpdf image type, or "" when unsupported.
func ImageType(filename string) string {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "JPG"
	case strings.HasSuffix(lower, ".png"):
		return "PNG"
	default:
		return ""
	}
}

// Render writes doc as a single A4 PDF to w.
func Render(w io.Writer, doc Document) error {
	if strings.TrimSpace(doc.Title) == "" {
		return errors.New("specsheet: title is required")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("catalogadmin", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	generated := doc.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-pageMargin)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, lineHeight, tr(fmt.Sprintf("Generated %s - page %d", generated.UTC().Format("2006-01-02"), pdf.PageNo())), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, tr(doc.Title), "", "L", false)
	pdf.Ln(2)

	if doc.Image != nil && len(doc.Image.Data) > 0 && doc.Image.Type != "" {
		name := "product-image"
		opts := fpdf.ImageOptions{ImageType: doc.Image.Type, ReadDpi: true}
		info := pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(doc.Image.Data))
		if pdf.Ok() && info != nil {
			width := 70.0
			height := width * info.Height() / info.Width()
			pdf.ImageOptions(name, pageMargin, pdf.GetY(), width, height, true, opts, 0, "")
			pdf.Ln(4)
		} else {
			pdf.ClearError()
		}
	}

	pdf.SetFont("Helvetica", "", 11)
	row := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(labelWidth, lineHeight, tr(label), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, lineHeight, tr(value), "", "L", false)
	}
	row("SKU", doc.SKU)
	row("Price", doc.Price)
	row("Status", doc.Status)
	row("Category", strings.Join(doc.CategoryPath, " > "))

	section := func(title string) {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, tr(title), "B", 1, "L", false, 0, "")
		pdf.Ln(1)
		pdf.SetFont("Helvetica", "", 11)
	}

	if desc := strings.TrimSpace(doc.Description); desc != "" {
		section("Description")
		pdf.MultiCell(0, lineHeight, tr(desc), "", "L", false)
	}
	if len(doc.Attributes) > 0 {
		section("Attributes")
		for _, group := range doc.Attributes {
			row(group.Name, strings.Join(group.Values, ", "))
		}
	}
	if len(doc.Materials) > 0 {
		section("Materials")
		pdf.MultiCell(0, lineHeight, tr(strings.Join(doc.Materials, ", ")), "", "L", false)
	}
	if len(doc.Components) > 0 {
		section("Components")
		for _, component := range doc.Components {
			pdf.MultiCell(0, lineHeight, tr("- "+component), "", "L", false)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("specsheet: render: %w", err)
	}
	return nil
}
