package handler

import (
	"github.com/ecomcore/orderflow/internal/domain/order"
)

type shippingDTO struct {
	Type    string `json:"type"`
	Carrier string `json:"carrier"`
}

type billingDTO struct {
	Payment    string  `json:"payment"`
	TotalPrice float64 `json:"totalPrice"`
}

type orderProductDTO struct {
	Code  string  `json:"code"`
	Price float64 `json:"price"`
}

type createOrderRequest struct {
	Email      string      `json:"email"`
	ProductIDs []string    `json:"productIds"`
	Payment    string      `json:"payment"`
	Shipping   shippingDTO `json:"shipping"`
}

type orderResponse struct {
	ID        string            `json:"id"`
	Email     string            `json:"email"`
	CreatedAt int64             `json:"createdAt"`
	Products  []orderProductDTO `json:"products"`
	Billing   billingDTO        `json:"billing"`
	Shipping  shippingDTO       `json:"shipping"`
}

func toOrderResponse(o *order.Order) orderResponse {
	products := make([]orderProductDTO, len(o.Products))
	for i, p := range o.Products {
		products[i] = orderProductDTO{Code: p.Code, Price: p.Price.InexactFloat64()}
	}
	return orderResponse{
		ID:        o.ID,
		Email:     o.Email,
		CreatedAt: o.CreatedAt.UnixMilli(),
		Products:  products,
		Billing: billingDTO{
			Payment:    string(o.Billing.Payment),
			TotalPrice: o.Billing.TotalPrice.InexactFloat64(),
		},
		Shipping: shippingDTO{
			Type:    string(o.Shipping.Type),
			Carrier: string(o.Shipping.Carrier),
		},
	}
}

func toOrderResponses(orders []order.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	return out
}
