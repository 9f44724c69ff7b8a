package flow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/asima2006/Grocery-Cart-Automater/api/schemas"
)

var (
	nonPrice    = regexp.MustCompile(`[^0-9.]`)
	nonQuantity = regexp.MustCompile(`[^0-9]`)
)

// parseCartHTML scrapes line items and the displayed total from the rendered
// cart page. The total is taken from the page, never recomputed from the
// items: the two can legitimately diverge when the site applies discounts.
func parseCartHTML(html string) (*schemas.CartSummary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schemas.ErrScrapeParse, err)
	}

	totalSel := doc.Find(selCartTotal).First()
	if totalSel.Length() == 0 {
		return nil, fmt.Errorf("%w: missing cart total element %q", schemas.ErrScrapeParse, selCartTotal)
	}

	items := make([]schemas.CartLineItem, 0)
	doc.Find(selCartItem).Each(func(_ int, row *goquery.Selection) {
		items = append(items, schemas.CartLineItem{
			Name:     strings.TrimSpace(row.Find(selItemName).First().Text()),
			Quantity: parseQuantity(row.Find(selItemQty).First().Text()),
			Price:    parsePrice(row.Find(selItemPrice).First().Text()),
		})
	})
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no cart rows matched %q", schemas.ErrScrapeParse, selCartItem)
	}

	return &schemas.CartSummary{
		Items:      items,
		TotalPrice: parsePrice(totalSel.Text()),
	}, nil
}

// parsePrice strips currency symbols and separators before conversion. A
// price that fails to parse defaults to 0.
func parsePrice(text string) float64 {
	cleaned := nonPrice.ReplaceAllString(text, "")
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return price
}

// parseQuantity extracts the digits of a quantity cell. A quantity that
// fails to parse defaults to 1.
func parseQuantity(text string) int {
	cleaned := nonQuantity.ReplaceAllString(text, "")
	qty, err := strconv.Atoi(cleaned)
	if err != nil || qty < 1 {
		return 1
	}
	return qty
}
