package order

import (
	"bizzplus/internal/core/types"
)

// PriceLine computes a line's amounts, each rounded half-up to two places.
func PriceLine(qty types.Quantity, rate types.Money, gst types.Percent) (total, tax, grand types.Money) {
	total = types.RoundMoney(qty.Mul(rate))
	tax = types.RoundMoney(types.PercentOf(total, gst))
	grand = total.Add(tax)
	return total, tax, grand
}

// AddLine appends a priced line and refreshes the totals.
func (o *Order) AddLine(item Item) {
	item.LineNo = len(o.Items) + 1
	item.OrderID = o.ID
	item.LineTotal, item.LineGST, item.LineGrandTotal = PriceLine(item.Qty, item.Rate, item.GSTPercent)
	o.Items = append(o.Items, item)
	o.recalculateTotals()
}

func (o *Order) recalculateTotals() {
	var subtotal, gst types.Money
	for _, it := range o.Items {
		subtotal = subtotal.Add(it.LineTotal)
		gst = gst.Add(it.LineGST)
	}
	o.Subtotal = subtotal
	o.GSTTotal = gst
	o.GrandTotal = subtotal.Add(gst)
}
