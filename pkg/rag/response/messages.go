package response

import (
	"fmt"
	"strings"

	"tokinarc-sales-be/pkg/catalog"
	"tokinarc-sales-be/pkg/rag/search"
)

var sellingScopeTemplates = []string{
	"Hiện tại Autoss chuyên phụ kiện cho súng hàn MIG/MAG Tokinarc (Nhật Bản), gồm: " +
		"béc hàn, thân giữ béc, chụp khí, cách điện và sứ phân phối khí.",
	"Autoss đang cung cấp phụ kiện Tokinarc cho MIG/MAG: béc hàn, thân giữ béc, chụp khí, " +
		"cách điện, sứ phân phối khí.",
	"Danh mục bên em là phụ kiện MIG/MAG Tokinarc (Nhật Bản): béc hàn, thân giữ béc, chụp khí, " +
		"cách điện, sứ phân phối khí.",
}

const (
	AskTypeQuestion      = "Anh/Chị đang dùng súng hàn tay hay súng hàn robot ạ?"
	DefaultPriceReply    = "Dạ, Em sẽ ghi nhận nhu cầu và chuyển bộ phận phụ trách phản hồi chi tiết cho Anh/Chị."
	ReminderLine         = "Dạ, Anh/Chị cho em xin 3 thông tin: Tên công ty, Người liên hệ, Số điện thoại (Zalo). Em sẽ chuyển thông tin cho nhân viên phụ trách qua Zalo để hỗ trợ chi tiết ạ."
	NoRetailReply        = "Dạ bên em không bán lẻ 1 cái ạ. Anh/Chị cho em số lượng dự kiến và mã cần mua để em tư vấn đúng ạ."
	CodeNotFoundReply    = "Dạ, Em sẽ ghi nhận và chuyển bộ phận phụ trách phản hồi cho Anh/Chị."
	AskSKUGroupReply     = "Dạ Anh/Chị cho em xin mã hoặc nhóm sản phẩm cần mua (béc hàn, chụp khí, thân giữ béc, cách điện, sứ phân phối khí) để em tư vấn đúng ạ."
	NeedQuantityReply    = "Dạ em đã ghi nhận nhu cầu. Anh/Chị cho em xin số lượng dự kiến để em hỗ trợ đúng ạ."
	BundleClosing        = "Anh/Chị muốn em liệt kê thêm linh kiện đi kèm cùng hệ để mình ráp đồng bộ không ạ?"
	MissingImageNotice   = "Dạ em sẽ gửi link hình ảnh trên website cho Anh/Chị qua Zalo khi mình chốt thông tin giúp em ạ."
	UpstreamApology      = "Dạ hệ thống đang bận, Anh/Chị vui lòng gửi lại tin nhắn sau ít phút giúp em ạ."
	NegateAcknowledged   = "Dạ vâng ạ. Khi cần Anh/Chị cứ nhắn em nhé."
	QuantityTailSentence = "Em sẽ chuyển đầy đủ thông tin để bên em phản hồi phương án phù hợp cho Anh/Chị ạ."
)

// SellingScope rotates through the scope templates by turn number.
func SellingScope(turn int) string {
	if turn < 0 {
		turn = -turn
	}
	return sellingScopeTemplates[turn%len(sellingScopeTemplates)]
}

// StockLine renders the availability sentence, or "" when stock is unknown
// or zero.
func StockLine(stock *int) string {
	if stock == nil {
		return ""
	}
	switch n := *stock; {
	case n >= 100:
		return "Hiện hàng đang có sẵn ạ."
	case n > 0:
		return fmt.Sprintf("Hiện kho còn %d cái, số lượng còn lại sẽ cập nhật trong báo giá ạ.", n)
	}
	return ""
}

func partLabels(parts []catalog.Category) string {
	if len(parts) == 0 {
		return "linh kiện"
	}
	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		labels = append(labels, strings.ToLower(p.Label()))
	}
	return strings.Join(labels, ", ")
}

// DisambiguationQuestion asks only for the next missing constraint.
func DisambiguationQuestion(missing []string, parts []catalog.Category) string {
	labels := partLabels(parts)
	for _, m := range missing {
		if m == search.SlotAmp {
			return fmt.Sprintf("Hiện em thấy nhiều tùy chọn 350A/500A cho %s. Anh/Chị cho em xin dòng Ampe 350A hay 500A (và nếu có hệ N/D) để em lọc đúng ạ.", labels)
		}
	}
	for _, m := range missing {
		if m == search.SlotSystem {
			return fmt.Sprintf("Anh/Chị cho em xin hệ N/D đang dùng để em lọc đúng %s ạ.", labels)
		}
	}
	return AskTypeQuestion
}

// describeFilter lists the applied constraints in the user's words.
func describeFilter(f search.Filter) string {
	var parts []string
	if f.AnchorSKU != "" {
		parts = append(parts, "đi kèm mã "+f.AnchorSKU)
	}
	if f.Amp != catalog.AmpUnset {
		parts = append(parts, "dòng "+string(f.Amp))
	}
	if f.System != catalog.SystemUnset {
		parts = append(parts, "hệ "+string(f.System))
	}
	switch f.HandRobot {
	case catalog.Hand:
		parts = append(parts, "súng hàn tay")
	case catalog.Robot:
		parts = append(parts, "súng hàn robot")
	}
	return strings.Join(parts, ", ")
}

// NoMatchReply names the filters that were applied so the user can relax
// them. Unknown codes get the hand-off reply.
func NoMatchReply(res search.Result) string {
	if len(res.Unknown) > 0 {
		return fmt.Sprintf("Hiện em chưa thấy mã %s trong danh mục em đang tra ạ. %s",
			strings.Join(res.Unknown, ", "), CodeNotFoundReply)
	}
	msg := fmt.Sprintf("Hiện em chưa thấy dữ liệu %s phù hợp trong danh mục em đang tra ạ.", partLabels(res.Filters.Parts))
	if desc := describeFilter(res.Filters); desc != "" {
		msg += fmt.Sprintf(" Bộ lọc em đang dùng: %s.", desc)
	}
	return msg + " Anh/Chị có thể bỏ bớt điều kiện hoặc cho em xin model cổ súng để em đối chiếu lại ạ."
}

// UnderConstrainedReply introduces the single true match and asks to broaden.
func UnderConstrainedReply(res search.Result) string {
	return fmt.Sprintf("Dạ với điều kiện hiện tại em chỉ thấy %d mã %s phù hợp ạ.", res.Total, partLabels(res.Filters.Parts))
}

const broadenRequest = "Anh/Chị muốn em mở rộng sang dòng Ampe hoặc hệ khác để có thêm lựa chọn không ạ?"
