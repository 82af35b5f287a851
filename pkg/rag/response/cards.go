package response

import (
	"fmt"
	"strings"

	"tokinarc-sales-be/pkg/catalog"
)

// Image is a picture the client renders after the given paragraph.
type Image struct {
	URL                 string `json:"url"`
	SKU                 string `json:"sku"`
	AfterParagraphIndex int    `json:"after_paragraph_index"`
}

// Card renders one product as a markdown block. Pictures are sent
// separately as Images.
func Card(r catalog.Record) string {
	var lines []string
	name := r.Name
	if name == "" {
		name = "Sản phẩm Tokinarc"
	}
	lines = append(lines, fmt.Sprintf("**%s (%s)**", name, displaySKU(r.SKU)))

	var typeParts []string
	if r.Category != "" {
		typeParts = append(typeParts, "Loại: "+r.Category.Label())
	}
	if line := strings.TrimSpace(string(r.Amp) + " " + string(r.System)); line != "" {
		typeParts = append(typeParts, "Dòng: "+line)
	}
	if len(typeParts) > 0 {
		lines = append(lines, strings.Join(typeParts, " | "))
	}
	if r.PCode != "" || r.DCode != "" {
		var codes []string
		for _, c := range []string{r.PCode, r.DCode} {
			if c != "" {
				codes = append(codes, c)
			}
		}
		lines = append(lines, "Mã tham chiếu: "+strings.Join(codes, ", "))
	}
	if stock := StockLine(r.Stock); stock != "" {
		lines = append(lines, stock)
	}
	if r.Link != "" {
		lines = append(lines, r.Link)
	}
	return strings.Join(lines, "\n")
}

// Cards renders records as separate paragraphs.
func Cards(records []catalog.Record) string {
	cards := make([]string, 0, len(records))
	for _, r := range records {
		cards = append(cards, Card(r))
	}
	return strings.Join(cards, "\n\n")
}

func displaySKU(sku string) string {
	if sku == "" {
		return "N/A"
	}
	return "Tokin " + sku
}

// PlaceImages attaches one image per record, at most limit, after the
// paragraph holding that record's card. Records without a card in answer
// are skipped.
func PlaceImages(answer string, records []catalog.Record, limit int) []Image {
	paragraphs := strings.Split(answer, "\n\n")
	var out []Image
	for _, r := range records {
		if len(out) >= limit {
			break
		}
		url := r.FirstImage()
		if url == "" {
			continue
		}
		marker := "(" + displaySKU(r.SKU) + ")"
		for i, p := range paragraphs {
			if strings.Contains(p, marker) {
				out = append(out, Image{URL: url, SKU: r.SKU, AfterParagraphIndex: i})
				break
			}
		}
	}
	return out
}
