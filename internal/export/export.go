// Package export renders receipts for people: an HTML preview and a PDF
// document. Both are derived from the receipt alone, never from live
// catalog or cart state.
package export

import (
	"bytes"
	"html/template"
	"io"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/supernova-store/internal/domain/checkout"
)

// DateLayout is the receipt timestamp format.
const DateLayout = "2006-01-02 15:04"

// Brand is the store identity printed on receipts.
type Brand struct {
	StoreName string
	Footer    string
}

// DefaultBrand returns the built-in store identity.
func DefaultBrand() Brand {
	return Brand{
		StoreName: "Supernova Store",
		Footer:    "Thank you for your purchase!",
	}
}

// FileName returns the download name of the receipt document.
func FileName(r *checkout.Receipt) string {
	return "receipt-" + r.Number() + ".pdf"
}

var funcs = template.FuncMap{
	"money":   Money,
	"percent": Percent,
	"date":    func(t time.Time) string { return t.Format(DateLayout) },
}

var receiptTmpl = template.Must(template.New("receipt").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Brand.StoreName}} - {{.R.Number}}</title>
<style>
body{font-family:sans-serif;max-width:720px;margin:2rem auto;color:#222}
table{width:100%;border-collapse:collapse}
th,td{padding:.4rem;border-bottom:1px solid #ddd;text-align:left}
td.num,th.num{text-align:right}
.totals td{border:none}
footer{margin-top:2rem;color:#666;text-align:center}
</style>
</head>
<body>
<header>
<h1>{{.Brand.StoreName}}</h1>
<p>Receipt <strong>{{.R.Number}}</strong><br>Issued {{date .R.IssuedAt}}</p>
</header>
<section class="customer">
<p>Customer: {{.R.Customer.Name}}<br>ID: {{.R.Customer.ID}}</p>
</section>
<table>
<thead><tr><th>Item</th><th class="num">Qty</th><th class="num">Unit price</th><th class="num">Total</th></tr></thead>
<tbody>
{{- range .R.Lines}}
<tr><td>{{.Name}}</td><td class="num">{{.Quantity}}</td><td class="num">{{money .UnitPrice}}</td><td class="num">{{money .Subtotal}}</td></tr>
{{- end}}
</tbody>
</table>
<table class="totals">
<tr><td class="num">Subtotal</td><td class="num">{{money .R.Subtotal}}</td></tr>
<tr><td class="num">Tax ({{percent .R.TaxRate}})</td><td class="num">{{money .R.Tax}}</td></tr>
<tr><td class="num"><strong>Total</strong></td><td class="num"><strong>{{money .R.Total}}</strong></td></tr>
</table>
<footer>{{.Brand.Footer}}</footer>
</body>
</html>
`))

// HTML writes the receipt preview page to w.
func HTML(w io.Writer, r *checkout.Receipt, brand Brand) error {
	var buf bytes.Buffer
	if err := receiptTmpl.Execute(&buf, struct {
		R     *checkout.Receipt
		Brand Brand
	}{R: r, Brand: brand}); err != nil {
		return errors.Wrap(err, "execute receipt template")
	}
	if _, err := buf.WriteTo(w); err != nil {
		return errors.Wrap(err, "write receipt")
	}
	return nil
}
