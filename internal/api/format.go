package api

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

type format string

const (
	formatJSON format = "json"
	formatXML  format = "xml"
	formatXLSX format = "xlsx"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// splitFormat strips a known format suffix from a route value such as
// "T4_BAG,T5_BAG.xml".
func splitFormat(value string) (string, format, bool) {
	i := strings.LastIndexByte(value, '.')
	if i < 0 {
		return value, "", false
	}
	switch f := format(strings.ToLower(value[i+1:])); f {
	case formatJSON, formatXML, formatXLSX:
		return value[:i], f, true
	}
	return value, "", false
}

// negotiate picks the response format: route suffix, then ?format=, then
// the Accept header. JSON is the default.
func negotiate(c *gin.Context, suffix format) format {
	if suffix != "" {
		return suffix
	}
	switch format(strings.ToLower(c.Query("format"))) {
	case formatXML:
		return formatXML
	case formatXLSX:
		return formatXLSX
	case formatJSON:
		return formatJSON
	}
	accept := c.GetHeader("Accept")
	if strings.Contains(accept, "xml") && !strings.Contains(accept, "json") {
		return formatXML
	}
	return formatJSON
}

// table is the spreadsheet form of a response.
type table struct {
	sheet  string
	header []interface{}
	rows   [][]interface{}
}

// xmlArray wraps a slice so the document has a single root element.
type xmlArray struct {
	XMLName xml.Name
	Items   interface{}
}

// render writes body in the negotiated format. tab is only built for xlsx.
func render(c *gin.Context, f format, status int, root string, body interface{}, tab func() table) {
	switch f {
	case formatXML:
		c.XML(status, xmlArray{XMLName: xml.Name{Local: "ArrayOf" + root}, Items: body})
	case formatXLSX:
		data, err := workbook(tab())
		if err != nil {
			c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build workbook"})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, strings.ToLower(root)))
		c.Data(status, xlsxContentType, data)
	default:
		c.JSON(status, body)
	}
}

func workbook(t table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", t.sheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(t.sheet, "A1", &t.header); err != nil {
		return nil, err
	}
	for i := range t.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(t.sheet, cell, &t.rows[i]); err != nil {
			return nil, err
		}
	}
	if err := f.SetPanes(t.sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, err
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
