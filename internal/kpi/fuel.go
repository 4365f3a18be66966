package kpi

import (
	"sort"
	"time"

	"energyboard/internal/models"
	"energyboard/internal/table"
)

// Prices outside (0, MaxFuelPrice) are data entry errors in the purchase sheet
const MaxFuelPrice = 50.0

// Purchase is one fuel delivery with its price per litre
type Purchase struct {
	Date  time.Time
	Price float64
}

// Purchases reads the price column of the fuel purchase table, skipping
// missing and implausible prices. The result is ordered by date.
func Purchases(t *table.WideTable, column string) []Purchase {
	values := t.Column(column)
	if values == nil {
		return nil
	}
	var out []Purchase
	for i, ts := range t.Index {
		p := values[i]
		if table.IsMissing(p) || p <= 0 || p >= MaxFuelPrice {
			continue
		}
		out = append(out, Purchase{Date: table.Day(ts), Price: p})
	}
	return out
}

// FuelCost is the priced generator fuel consumption over a set of days
type FuelCost struct {
	Liters       float64
	Cost         float64
	AveragePrice float64
}

// PriceFuel prices each day with the latest purchase on or before it, or
// defaultPrice when there is none.
func PriceFuel(liters []models.DayValue, purchases []Purchase, defaultPrice float64) FuelCost {
	if len(liters) == 0 {
		return FuelCost{}
	}
	var fc FuelCost
	var priceSum float64
	for _, d := range liters {
		price := priceAt(purchases, d.Day, defaultPrice)
		fc.Liters += d.Value
		fc.Cost += d.Value * price
		priceSum += price
	}
	fc.AveragePrice = priceSum / float64(len(liters))
	return fc
}

func priceAt(purchases []Purchase, day time.Time, defaultPrice float64) float64 {
	// first purchase strictly after the day
	j := sort.Search(len(purchases), func(k int) bool {
		return purchases[k].Date.After(day)
	})
	if j == 0 {
		return defaultPrice
	}
	return purchases[j-1].Price
}
