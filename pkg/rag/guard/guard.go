// Package guard decides which blocks of a sales reply may be rendered.
package guard

import (
	"fmt"
	"strings"

	"tokinarc-sales-be/pkg/catalog"
	"tokinarc-sales-be/pkg/rag/intent"
	"tokinarc-sales-be/pkg/rag/search"
	"tokinarc-sales-be/pkg/rag/state"
)

const (
	OriginLine = "Xuất xứ: Tokinarc – Nhật Bản 🇯🇵"
	FormBlock  = "🏢 Tên công ty\n👤 Người liên hệ\n📞 Số điện thoại (Zalo)"
)

// Directive is the rendering decision for one reply.
type Directive struct {
	ShowProducts      bool `json:"show_products"`
	ShowForm          bool `json:"show_form"`
	ShowHandRobotNote bool `json:"show_hand_robot_note"`
	ShowOriginLine    bool `json:"show_origin_line"`
}

// Decide is pure. Products need at least one retrieved item, the origin
// line follows products, the hand/robot note only appears while retrieval
// assumed a hand torch, and the form needs an explicit commercial trigger.
func Decide(in intent.Intent, res search.Result, st state.ContextState) Directive {
	products := res.HasItems()
	handUnset := in.HandRobot == catalog.HandRobotUnset && st.HandRobot == catalog.HandRobotUnset &&
		res.Filters.HandRobot != catalog.Robot
	return Directive{
		ShowProducts:      products,
		ShowOriginLine:    products,
		ShowHandRobotNote: products && handUnset,
		ShowForm:          in.Commercial,
	}
}

// HandRobotNote tells the user the advice assumes a hand torch.
func HandRobotNote(amp catalog.Amp) string {
	scope := "MIG thông dụng"
	if amp != catalog.AmpUnset {
		scope = "MIG " + string(amp)
	}
	return fmt.Sprintf("Dạ vâng ạ, hiện em đang tư vấn theo bộ phụ kiện cho súng hàn tay %s. "+
		"Nếu Anh/Chị dùng súng hàn robot, Anh/Chị báo giúp em để em đối chiếu và chọn đúng mã phù hợp ạ.", scope)
}

// Sections are the pieces a reply is assembled from. Empty Note and Form
// fall back to the defaults when the directive asks for them.
type Sections struct {
	Opening  string
	Products string
	Body     string
	Note     string
	Form     string
}

// Compose joins sections in render order. The origin line is always the
// line right after the opening sentence.
func Compose(d Directive, s Sections) string {
	var blocks []string

	head := strings.TrimSpace(s.Opening)
	if d.ShowOriginLine {
		if head != "" {
			head += "\n"
		}
		head += OriginLine
	}
	blocks = appendBlock(blocks, head)

	if d.ShowProducts {
		blocks = appendBlock(blocks, s.Products)
	}
	blocks = appendBlock(blocks, s.Body)

	if d.ShowHandRobotNote {
		note := s.Note
		if strings.TrimSpace(note) == "" {
			note = HandRobotNote(catalog.AmpUnset)
		}
		blocks = appendBlock(blocks, note)
	}
	if d.ShowForm {
		form := s.Form
		if strings.TrimSpace(form) == "" {
			form = FormBlock
		}
		blocks = appendBlock(blocks, form)
	}
	return strings.Join(blocks, "\n\n")
}

func appendBlock(blocks []string, b string) []string {
	if b = strings.TrimSpace(b); b != "" {
		return append(blocks, b)
	}
	return blocks
}

// SplitOpening cuts the first sentence off text. A sentence ends at a line
// break or at ".", "?" or "!" followed by whitespace.
func SplitOpening(text string) (opening, rest string) {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	for i, r := range runes {
		if r == '\n' {
			return strings.TrimSpace(string(runes[:i])), strings.TrimSpace(string(runes[i+1:]))
		}
		if (r == '.' || r == '?' || r == '!') && i+1 < len(runes) && (runes[i+1] == ' ' || runes[i+1] == '\n') {
			return strings.TrimSpace(string(runes[:i+1])), strings.TrimSpace(string(runes[i+1:]))
		}
	}
	return text, ""
}

// StripOrigin removes origin lines a model may have written on its own so
// Compose can place exactly one.
func StripOrigin(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "Xuất xứ:") {
			continue
		}
		kept = append(kept, l)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
