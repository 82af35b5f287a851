package catalog

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tokinarc-sales-be/pkg/utils"

	"gopkg.in/yaml.v3"
)

// Meta identifies the catalog file version a turn was answered from.
type Meta struct {
	FileName  string    `json:"file_name"`
	UpdatedAt time.Time `json:"updated_at"`
	SHA256    string    `json:"sha256"`
	Records   int       `json:"records"`
}

// Loader builds an Index from a JSON or YAML export of the product sheet.
type Loader struct {
	path string
}

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads and parses the file on every call; the index is request-scoped.
func (l *Loader) Load() (*Index, Meta, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("read catalog %s: %w", l.path, err)
	}
	info, err := os.Stat(l.path)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("stat catalog %s: %w", l.path, err)
	}

	records, err := Parse(raw, formatFromPath(l.path))
	if err != nil {
		return nil, Meta{}, err
	}

	sum := sha256.Sum256(raw)
	meta := Meta{
		FileName:  filepath.Base(l.path),
		UpdatedAt: info.ModTime(),
		SHA256:    hex.EncodeToString(sum[:]),
		Records:   len(records),
	}
	return NewIndex(records), meta, nil
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// Parse decodes either a bare list of rows or an object with an "items" list.
func Parse(raw []byte, format string) ([]Record, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	var doc interface{}
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode catalog yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode catalog json: %w", err)
		}
	}

	var rows []interface{}
	switch v := doc.(type) {
	case []interface{}:
		rows = v
	case map[string]interface{}:
		if items, ok := v["items"].([]interface{}); ok {
			rows = items
		}
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		m, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		records = append(records, recordFromRow(m))
	}
	return records, nil
}

var (
	codeKeys     = keySet("sku", "code", "mã sản phẩm", "Mã Tokin (Tokin Part No.)", "Tokin Part No.", "mã tokin", "mã", "product code")
	pCodeKeys    = keySet("p_code", "Mã P (P Part No.)", "P Part No.", "mã p")
	dCodeKeys    = keySet("d_code", "Mã D (D Part No.)", "D Part No.", "mã d")
	nameKeys     = keySet("name", "tên", "tên sản phẩm", "tên tiếng việt", "tên tiếng anh", "product name")
	descKeys     = keySet("description", "mô tả", "chi tiết", "spec")
	categoryKeys = keySet("category", "danh mục", "loại", "nhóm", "product category")
	linkKeys     = keySet("link sản phẩm", "product link", "url", "link")
	imageKeys    = keySet("images", "image", "image_url", "hình ảnh", "ảnh")
	stockKeys    = keySet("stock", "tồn kho", "đơn vị", "số lượng tồn")
	ampKeys      = keySet("amp", "ampe", "dòng điện")
	systemKeys   = keySet("system", "hệ")
	handKeys     = keySet("hand_robot", "hand/robot", "loại súng")
	compatKeys   = keySet("compatible_with", "compatible", "tương thích", "dùng chung")

	splitRe = regexp.MustCompile(`[,;\s]+`)
)

func keySet(keys ...string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = utils.NormalizeKey(k)
	}
	return out
}

func recordFromRow(row map[string]interface{}) Record {
	fields := make(map[string]interface{}, len(row))
	for k, v := range row {
		fields[utils.NormalizeKey(k)] = v
	}
	get := func(keys []string) interface{} {
		for _, k := range keys {
			if v, ok := fields[k]; ok && hasValue(v) {
				return v
			}
		}
		return nil
	}

	r := Record{
		SKU:         normalizeSKU(asString(get(codeKeys))),
		PCode:       strings.ToUpper(strings.TrimSpace(asString(get(pCodeKeys)))),
		DCode:       strings.ToUpper(strings.TrimSpace(asString(get(dCodeKeys)))),
		Name:        strings.TrimSpace(asString(get(nameKeys))),
		Description: strings.TrimSpace(asString(get(descKeys))),
		Link:        strings.TrimSpace(asString(get(linkKeys))),
	}

	text := utils.NormalizeText(r.Name + " " + r.Description)

	r.Category = ParseCategory(asString(get(categoryKeys)))
	if r.Category == CategoryOther {
		if cats := DetectCategories(text); len(cats) > 0 {
			r.Category = cats[0]
		}
	}

	r.Amp = ParseAmp(asString(get(ampKeys)))
	if r.Amp == AmpUnset {
		r.Amp = DetectAmp(text)
	}

	r.System = System(strings.ToUpper(strings.TrimSpace(asString(get(systemKeys)))))
	if r.System != SystemN && r.System != SystemD {
		r.System = DetectSystem(text)
	}

	r.HandRobot = DetectHandRobot(utils.NormalizeText(asString(get(handKeys))))
	if r.HandRobot == HandRobotUnset {
		r.HandRobot = DetectHandRobot(text)
	}

	r.Images = asList(get(imageKeys))
	for _, ref := range asList(get(compatKeys)) {
		r.CompatibleWith = append(r.CompatibleWith, normalizeSKU(ref))
	}
	r.Stock = asInt(get(stockKeys))
	return r
}

func normalizeSKU(code string) string {
	code = strings.TrimSpace(code)
	if d := utils.ExtractDigits(code); len(d) >= 5 && len(d) <= 6 && len(d) == len(strings.Join(strings.Fields(code), "")) {
		return d
	}
	lower := strings.ToLower(code)
	if strings.HasPrefix(lower, "tokin") {
		if d := utils.ExtractDigits(code); len(d) >= 5 && len(d) <= 6 {
			return d
		}
	}
	return strings.ToUpper(code)
}

func hasValue(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case []interface{}:
		return len(t) > 0
	default:
		return true
	}
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprint(t)
	}
}

func asList(v interface{}) []string {
	var out []string
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			if s := strings.TrimSpace(asString(item)); s != "" {
				out = append(out, s)
			}
		}
	case nil:
	default:
		for _, s := range splitRe.Split(asString(t), -1) {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

var firstIntRe = regexp.MustCompile(`\d+`)

func asInt(v interface{}) *int {
	s := firstIntRe.FindString(asString(v))
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
