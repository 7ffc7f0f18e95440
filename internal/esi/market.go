package esi

import (
	"context"
	"fmt"
	"time"
)

// MarketOrder mirrors the ESI market order response.
type MarketOrder struct {
	OrderID      int64     `json:"order_id"`
	TypeID       int32     `json:"type_id"`
	LocationID   int64     `json:"location_id"`
	SystemID     int32     `json:"system_id"`
	Price        float64   `json:"price"`
	VolumeRemain int64     `json:"volume_remain"`
	IsBuyOrder   bool      `json:"is_buy_order"`
	Issued       time.Time `json:"issued"`
	Duration     int32     `json:"duration"`
}

// OrderPage is one page of a region's order book.
type OrderPage struct {
	Orders []MarketOrder
	// Pages is the total page count reported by ESI, or 0 when unknown.
	Pages int
}

// RegionOrdersPage fetches one page (1-based) of all orders in a region.
// A page past the end yields ErrNotFound. Pages are cached until their
// Expires time and concurrent requests for the same page share one fetch,
// so hubs in the same region cost one scan.
func (c *Client) RegionOrdersPage(ctx context.Context, regionID int32, page int) (OrderPage, error) {
	if p, ok := c.pages.Get(regionID, page, time.Now()); ok {
		return p, nil
	}
	key := fmt.Sprintf("%d:%d", regionID, page)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		url := fmt.Sprintf("%s/markets/%d/orders/?datasource=tranquility&order_type=all&page=%d",
			c.opts.BaseURL, regionID, page)
		var orders []MarketOrder
		header, err := c.getJSON(ctx, url, &orders)
		if err != nil {
			return OrderPage{}, err
		}
		p := OrderPage{Orders: orders, Pages: totalPages(header)}
		c.pages.Put(regionID, page, p, parseExpires(header, time.Now()))
		return p, nil
	})
	if err != nil {
		return OrderPage{}, fmt.Errorf("region %d page %d: %w", regionID, page, err)
	}
	return v.(OrderPage), nil
}
