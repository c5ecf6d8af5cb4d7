// Package templates holds the dashboard's HTML components. Components render
// through html/template so every value is escaped.
package templates

import (
	"context"
	"html/template"
	"io"
	"strings"

	"github.com/a-h/templ"

	"olist-dashboard/internal/format"
	"olist-dashboard/internal/models"
)

const (
	MetricsID = "metrics"
	PanelsID  = "panels"
	ErrorID   = "range-error"
)

var funcs = template.FuncMap{
	"brl":   format.BRL,
	"num2":  format.Decimal2,
	"first": func(r models.DateRange) string { return r.Start.Format(models.DayLayout) },
	"last":  func(r models.DateRange) string { return r.End.Format(models.DayLayout) },
	"orNA":  orNA,
}

// orNA renders the no-data sentinel as a dash.
func orNA(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

var pageTemplate = template.Must(template.New("page").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>E-Commerce Dashboard</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"></script>
</head>
<body>
<aside class="sidebar" data-signals="{startDate: '{{first .}}', endDate: '{{last .}}', rangeError: ''}">
<h1>E-Commerce Dashboard</h1>
<label>Start <input type="date" min="{{first .}}" max="{{last .}}" data-bind="startDate"></label>
<label>End <input type="date" min="{{first .}}" max="{{last .}}" data-bind="endDate"></label>
<button data-on:click="@get('/sse/refresh')">Apply</button>
</aside>
<main data-init="@get('/sse/refresh')">
<div id="` + ErrorID + `"></div>
<div id="` + MetricsID + `">Loading metrics...</div>
<div id="` + PanelsID + `">Loading charts...</div>
</main>
</body>
</html>`))

var metricsTemplate = template.Must(template.New("metrics").Funcs(funcs).Parse(`<div id="` + MetricsID + `">
<section><h2>E-commerce Income</h2>
<div class="metric"><span>Total Income</span><strong>{{brl .Income.TotalSpend}}</strong></div>
<div class="metric"><span>Average Income</span><strong>{{brl .Income.AverageSpend}}</strong></div>
</section>
<section><h2>Product Sales</h2>
<div class="metric"><span>Total Product Sales</span><strong>{{.Products.TotalItems}}</strong></div>
<div class="metric"><span>Average Item Sales</span><strong>{{num2 .Products.AverageItems}}</strong></div>
</section>
<section><h2>Customer Distribution</h2>
<div class="metric"><span>Most Common State</span><strong>{{orNA .MostCommonState}}</strong></div>
<div class="metric"><span>Most Common City</span><strong>{{orNA .MostCommonCity}}</strong></div>
<div class="metric"><span>Most Common Order Status</span><strong>{{orNA .MostCommonStatus}}</strong></div>
<div class="metric"><span>Most Common Review Score</span><strong>{{if .MostCommonScore}}{{.MostCommonScore}}{{else}}-{{end}}</strong></div>
</section>
</div>`))

var panelsTemplate = template.Must(template.New("panels").Funcs(funcs).Parse(`<div id="` + PanelsID + `">
<section><h3>Daily Revenue Trend</h3>
<table><thead><tr><th>Date</th><th>Orders</th><th>Revenue</th></tr></thead><tbody>
{{range .DailyOrders}}<tr><td>{{.Day}}</td><td>{{.OrderCount}}</td><td>{{brl .Revenue}}</td></tr>{{end}}
</tbody></table></section>
<section><h3>Top {{len .Products.TopCategories}} Product Categories</h3>
<table><tbody>{{range .Products.TopCategories}}<tr><td>{{.Category}}</td><td>{{.ProductCount}}</td></tr>{{end}}</tbody></table></section>
<section><h3>Bottom {{len .Products.BottomCategories}} Product Categories</h3>
<table><tbody>{{range .Products.BottomCategories}}<tr><td>{{.Category}}</td><td>{{.ProductCount}}</td></tr>{{end}}</tbody></table></section>
<section><h3>Customers by State</h3>
<table><tbody>{{range .States}}<tr><td>{{.State}}</td><td>{{.CustomerCount}}</td></tr>{{end}}</tbody></table></section>
<section><h3>Top {{len .TopCities}} Cities by Customer Count</h3>
<table><tbody>{{range .TopCities}}<tr><td>{{.City}}</td><td>{{.TotalCustomer}}</td></tr>{{end}}</tbody></table></section>
<section><h3>Order Status Distribution</h3>
<table><tbody>{{range .OrderStatuses}}<tr><td>{{.Status}}</td><td>{{.Count}}</td></tr>{{end}}</tbody></table></section>
<section><h3>Review Scores</h3>
<table><tbody>{{range .ReviewScores}}<tr><td>{{.Score}}</td><td>{{.Count}}</td></tr>{{end}}</tbody></table></section>
</div>`))

var errorTemplate = template.Must(template.New("error").Parse(`<div id="` + ErrorID + `">{{if .}}<p class="error">{{.}}</p>{{end}}</div>`))

func component(t *template.Template, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return t.Execute(w, data)
	})
}

// Dashboard is the full page; bounds seed the date pickers.
func Dashboard(bounds models.DateRange) templ.Component {
	return component(pageTemplate, bounds)
}

func Metrics(d *models.Dashboard) templ.Component {
	return component(metricsTemplate, d)
}

func Panels(d *models.Dashboard) templ.Component {
	return component(panelsTemplate, d)
}

// RangeError renders the message slot; an empty message clears it.
func RangeError(message string) templ.Component {
	return component(errorTemplate, message)
}

// RenderString renders c into a string for SSE element patches.
func RenderString(ctx context.Context, c templ.Component) (string, error) {
	var buf strings.Builder
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
