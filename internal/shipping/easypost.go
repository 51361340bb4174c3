package shipping

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"

	"github.com/EasyPost/easypost-go/v4"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ErrNoRates is returned when the carrier quotes no usable rate for a shipment.
var ErrNoRates = errors.New("no shipping rates available")

// Label is a purchased shipping label.
type Label struct {
	ShipmentID     string
	TrackingNumber string
	LabelURL       string
	Carrier        string
	Service        string
}

// FromAddress is the fixed origin of every shipment.
type FromAddress struct {
	Company string
	Street1 string
	City    string
	State   string
	Zip     string
	Country string
}

// labelAPI is the subset of the EasyPost client used to buy labels.
type labelAPI interface {
	CreateShipmentWithContext(ctx context.Context, in *easypost.Shipment) (*easypost.Shipment, error)
	BuyShipmentWithContext(ctx context.Context, shipmentID string, rate *easypost.Rate, insurance string) (*easypost.Shipment, error)
}

// defaultParcel is the package every order ships in: 9x6x2 in, 10 oz.
var defaultParcel = easypost.Parcel{Length: 9, Width: 6, Height: 2, Weight: 10}

type EasyPostGateway struct {
	api  labelAPI
	from FromAddress
}

func NewEasyPostGateway(apiKey string, from FromAddress) *EasyPostGateway {
	return newEasyPostGateway(easypost.New(apiKey), from)
}

func newEasyPostGateway(api labelAPI, from FromAddress) *EasyPostGateway {
	return &EasyPostGateway{api: api, from: from}
}

// PurchaseLabel creates a shipment to addr and buys its cheapest rate.
func (g *EasyPostGateway) PurchaseLabel(ctx context.Context, addr models.ShippingAddress) (*Label, error) {
	parcel := defaultParcel
	shipment, err := g.api.CreateShipmentWithContext(ctx, &easypost.Shipment{
		ToAddress: &easypost.Address{
			Name:    addr.Name,
			Street1: addr.Line1,
			Street2: addr.Line2,
			City:    addr.City,
			State:   addr.State,
			Zip:     addr.PostalCode,
			Country: addr.Country,
		},
		FromAddress: &easypost.Address{
			Company: g.from.Company,
			Street1: g.from.Street1,
			City:    g.from.City,
			State:   g.from.State,
			Zip:     g.from.Zip,
			Country: g.from.Country,
		},
		Parcel: &parcel,
	})
	if err != nil {
		return nil, fmt.Errorf("easypost: create shipment: %w", err)
	}

	rate, err := lowestRate(shipment.Rates)
	if err != nil {
		return nil, fmt.Errorf("easypost: shipment %s: %w", shipment.ID, err)
	}

	bought, err := g.api.BuyShipmentWithContext(ctx, shipment.ID, rate, "")
	if err != nil {
		return nil, fmt.Errorf("easypost: buy shipment %s: %w", shipment.ID, err)
	}

	// Paid for from here on; a missing tracking code is not an error.
	label := &Label{
		ShipmentID:     shipment.ID,
		TrackingNumber: bought.TrackingCode,
		Carrier:        rate.Carrier,
		Service:        rate.Service,
	}
	if bought.PostageLabel != nil {
		label.LabelURL = bought.PostageLabel.LabelURL
	}
	return label, nil
}

// lowestRate picks the cheapest rate with a parseable amount.
func lowestRate(rates []*easypost.Rate) (*easypost.Rate, error) {
	priced := lo.Filter(rates, func(r *easypost.Rate, _ int) bool {
		if r == nil {
			return false
		}
		_, err := decimal.NewFromString(r.Rate)
		return err == nil
	})
	if len(priced) == 0 {
		return nil, ErrNoRates
	}

	return lo.MinBy(priced, func(a, b *easypost.Rate) bool {
		return decimal.RequireFromString(a.Rate).LessThan(decimal.RequireFromString(b.Rate))
	}), nil
}
