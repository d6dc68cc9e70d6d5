package trade

import (
	"fmt"

	"github.com/shopspring/decimal"

	"stratsim/internal/asset"
	"stratsim/internal/cost"
	"stratsim/internal/order"
)

// Pending couples an outstanding order with the market context at its
// execution bar, as needed by the cost model.
type Pending struct {
	Order *order.Order
	Quote cost.Quote
}

// MatchFIFO reconciles two FIFO queues of outstanding buy and sell orders
// into partial-close trades. The lesser-sized head pair is matched and
// popped until one queue empties. The realised profit of each trade
// compounds into the balance used for the next match. Remaining queues and
// the final balance are returned alongside the trades.
func MatchFIFO(inst asset.Instrument, buys, sells []Pending, balance decimal.Decimal, m cost.Model) (Log, []Pending, []Pending, decimal.Decimal, error) {
	var matched Log
	for len(buys) > 0 && len(sells) > 0 {
		b, s := buys[0], sells[0]
		t, err := NewPartial(inst, b.Order, s.Order, b.Quote, s.Quote, balance, m)
		if err != nil {
			return nil, nil, nil, balance, fmt.Errorf("matching %s against %s: %w", b.Order.ID, s.Order.ID, err)
		}
		matched = append(matched, t)
		balance = balance.Add(t.Profit)
		if b.Order.Size.IsZero() {
			buys = buys[1:]
		}
		if s.Order.Size.IsZero() {
			sells = sells[1:]
		}
	}
	return matched, buys, sells, balance, nil
}
