package distribution

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/angelmondragon/pricesheets-backend/internal/email"
	"github.com/angelmondragon/pricesheets-backend/internal/pricing"
	"github.com/angelmondragon/pricesheets-backend/pkg/db/models"
	"github.com/angelmondragon/pricesheets-backend/pkg/enums"
)

const withheldLabel = "Contact for price"

var sheetTemplate = template.Must(template.New("sheet").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; color: #1a1a1a; max-width: 640px; margin: 0 auto; padding: 24px;">
  <p>{{if .ContactName}}Hi {{.ContactName}},{{else}}Hello,{{end}}</p>
  {{range .Paragraphs}}<p>{{.}}</p>
  {{end}}
  <table style="border-collapse: collapse; width: 100%; margin: 24px 0;">
    <tr><th align="left">Item</th><th align="left">Pack</th><th align="right">Price ({{.PriceBasis}})</th></tr>
    {{range .Rows}}<tr>
      <td style="padding: 4px 0;">{{.Name}}</td><td>{{.Package}}</td><td align="right">{{.Price}}</td>
    </tr>
    {{end}}
  </table>
  <p style="margin: 32px 0;">
    <a href="{{.URL}}" style="background: #14532d; color: #ffffff; padding: 12px 24px; border-radius: 6px; text-decoration: none; font-weight: 600;">View price sheet</a>
  </p>
  <p style="color: #6b7280; font-size: 13px;">This link is personal to you. If the button does not work, copy this URL:<br><a href="{{.URL}}" style="color: #6b7280;">{{.URL}}</a></p>
</body>
</html>`))

type sheetRow struct {
	Name    string
	Package string
	Price   string
}

type sheetView struct {
	ContactName string
	Paragraphs  []string
	PriceBasis  enums.PriceBasis
	Rows        []sheetRow
	URL         string
}

type composeInput struct {
	Document    *models.Document
	Recipient   *models.Recipient
	Resolutions []pricing.Resolution
	PriceBasis  enums.PriceBasis
	URL         string
	Override    MessageOverride
}

// SheetURL builds the personalized public link for one send.
func SheetURL(baseURL, documentID, token string) string {
	return fmt.Sprintf("%s/%s?c=%s", strings.TrimRight(baseURL, "/"), documentID, token)
}

func composeMessage(in composeInput) (email.Message, error) {
	subject := strings.TrimSpace(in.Override.Subject)
	if subject == "" {
		subject = "Price sheet: " + in.Document.Title
	}

	paragraphs := splitParagraphs(in.Override.Body)
	if len(paragraphs) == 0 {
		paragraphs = []string{fmt.Sprintf("Here is our current %s pricing for you.", in.Document.Title)}
		if in.Document.Notes != nil && strings.TrimSpace(*in.Document.Notes) != "" {
			paragraphs = append(paragraphs, strings.TrimSpace(*in.Document.Notes))
		}
	}

	view := sheetView{
		Paragraphs: paragraphs,
		PriceBasis: in.PriceBasis,
		Rows:       buildRows(in.Document.LineItems, in.Resolutions),
		URL:        in.URL,
	}
	if in.Recipient.ContactName != nil {
		view.ContactName = *in.Recipient.ContactName
	}

	var html bytes.Buffer
	if err := sheetTemplate.Execute(&html, view); err != nil {
		return email.Message{}, fmt.Errorf("render sheet email: %w", err)
	}

	return email.Message{
		To:      in.Recipient.Email,
		ToName:  view.ContactName,
		Subject: subject,
		HTML:    html.String(),
		Text:    plainText(view),
	}, nil
}

func buildRows(items []models.LineItem, resolutions []pricing.Resolution) []sheetRow {
	byID := make(map[string]pricing.Resolution, len(resolutions))
	for _, res := range resolutions {
		byID[res.ItemID] = res
	}
	rows := make([]sheetRow, 0, len(items))
	for _, item := range items {
		name := item.Commodity
		if item.Variety != "" {
			name += " " + item.Variety
		}
		if item.Grade != "" {
			name += " (" + item.Grade + ")"
		}
		rows = append(rows, sheetRow{
			Name:    name,
			Package: item.Package,
			Price:   priceLabel(byID[item.ID.String()]),
		})
	}
	return rows
}

func priceLabel(res pricing.Resolution) string {
	switch {
	case res.Price != nil:
		return pricing.DisplayPrice(*res.Price)
	case res.Comment != "":
		return res.Comment
	default:
		return withheldLabel
	}
}

func splitParagraphs(body string) []string {
	var out []string
	for _, chunk := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n\n") {
		if trimmed := strings.TrimSpace(chunk); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func plainText(view sheetView) string {
	var b strings.Builder
	if view.ContactName != "" {
		fmt.Fprintf(&b, "Hi %s,\n\n", view.ContactName)
	} else {
		b.WriteString("Hello,\n\n")
	}
	for _, p := range view.Paragraphs {
		b.WriteString(p)
		b.WriteString("\n\n")
	}
	for _, row := range view.Rows {
		fmt.Fprintf(&b, "- %s %s: %s\n", row.Name, row.Package, row.Price)
	}
	fmt.Fprintf(&b, "\nView price sheet (%s): %s\n", view.PriceBasis, view.URL)
	return b.String()
}
