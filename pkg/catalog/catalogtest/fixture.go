// Package catalogtest provides a small, fixed Tokinarc catalog for tests.
package catalogtest

import (
	"encoding/json"
	"os"
	"path/filepath"

	"tokinarc-sales-be/pkg/catalog"
)

func intPtr(n int) *int { return &n }

// Records returns a fresh copy of the fixture rows.
func Records() []catalog.Record {
	return []catalog.Record{
		{SKU: "002005", Name: "Béc hàn M6 1.2mm 350A", Category: catalog.CategoryTip, Amp: catalog.Amp350, HandRobot: catalog.Hand,
			Images: []string{"https://cdn.example.com/002005.jpg"}},
		{SKU: "002001", PCode: "P002001", Name: "Thân giữ béc 350A", Category: catalog.CategoryTipBody, Amp: catalog.Amp350, HandRobot: catalog.Hand,
			CompatibleWith: []string{"004002"}, Images: []string{"https://cdn.example.com/002001.jpg"}},
		{SKU: "002006", Name: "Thân giữ béc 500A", Category: catalog.CategoryTipBody, Amp: catalog.Amp500, HandRobot: catalog.Hand,
			Images: []string{"https://cdn.example.com/002006.jpg"}},
		{SKU: "004002", Name: "Cách điện 350A", Category: catalog.CategoryInsulator, Amp: catalog.Amp350, HandRobot: catalog.Hand,
			CompatibleWith: []string{"003002", "002001", "001003"}, Images: []string{"https://cdn.example.com/004002.jpg"}, Stock: intPtr(80)},
		{SKU: "004005", Name: "Cách điện 500A", Category: catalog.CategoryInsulator, Amp: catalog.Amp500, HandRobot: catalog.Hand,
			CompatibleWith: []string{"003005"}, Images: []string{"https://cdn.example.com/004005.jpg"}},
		{SKU: "004100", DCode: "U4167L00", Name: "Cách điện robot 350A", Category: catalog.CategoryInsulator, Amp: catalog.Amp350, HandRobot: catalog.Robot,
			Images: []string{"https://cdn.example.com/004100.jpg"}},
		{SKU: "003002", Name: "Chụp khí 350A ø19", Category: catalog.CategoryNozzle, Amp: catalog.Amp350, HandRobot: catalog.Hand,
			CompatibleWith: []string{"004002"}, Images: []string{"https://cdn.example.com/003002.jpg"}, Stock: intPtr(120)},
		{SKU: "003005", Name: "Chụp khí 500A", Category: catalog.CategoryNozzle, Amp: catalog.Amp500, HandRobot: catalog.Hand,
			CompatibleWith: []string{"004005"}, Images: []string{"https://cdn.example.com/003005.jpg"}},
		{SKU: "003010", Name: "Chụp khí robot 350A", Category: catalog.CategoryNozzle, Amp: catalog.Amp350, HandRobot: catalog.Robot,
			Images: []string{"https://cdn.example.com/003010.jpg"}},
		{SKU: "001003", Name: "Sứ phân phối khí 350A", Category: catalog.CategoryOrifice, Amp: catalog.Amp350, HandRobot: catalog.Hand,
			Images: []string{"https://cdn.example.com/001003.jpg"}},
		{SKU: "001004", Name: "Sứ phân phối khí 500A", Category: catalog.CategoryOrifice, Amp: catalog.Amp500, HandRobot: catalog.Hand,
			Images: []string{"https://cdn.example.com/001004.jpg"}},
	}
}

// Index builds an Index over Records.
func Index() *catalog.Index {
	return catalog.NewIndex(Records())
}

// WriteJSON writes Records as a catalog export into dir and returns its path.
func WriteJSON(dir string) (string, error) {
	raw, err := json.MarshalIndent(map[string]interface{}{"items": Records()}, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "catalog.json")
	return path, os.WriteFile(path, raw, 0o644)
}
