package payment

import (
	"github.com/shopspring/decimal"

	"hoja/pkg/domain"
	"hoja/pkg/errors"
)

// DefaultNetwork is used when a checkout names no network.
const DefaultNetwork = "ethereum"

var networks = []domain.Network{
	{ID: "ethereum", Name: "Ethereum", Icon: "⟠", Currency: domain.ETH, Fee: decimal.RequireFromString("0.0005")},
	{ID: "polygon", Name: "Polygon", Icon: "⬡", Currency: domain.MATIC, Fee: decimal.RequireFromString("0.01")},
	{ID: "optimism", Name: "Optimism", Icon: "🔴", Currency: domain.ETH, Fee: decimal.RequireFromString("0.0001")},
	{ID: "arbitrum", Name: "Arbitrum", Icon: "🔵", Currency: domain.ETH, Fee: decimal.RequireFromString("0.0002")},
}

// Networks lists the supported payment networks in display order.
func Networks() []domain.Network {
	out := make([]domain.Network, len(networks))
	copy(out, networks)
	return out
}

// LookupNetwork resolves a network id. An empty id selects DefaultNetwork.
func LookupNetwork(id string) (domain.Network, error) {
	if id == "" {
		id = DefaultNetwork
	}
	for _, n := range networks {
		if n.ID == id {
			return n, nil
		}
	}
	return domain.Network{}, errors.ErrUnknownNetwork
}
