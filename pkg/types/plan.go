package types

// PlanConfig is a purchasable recurring plan declared in configuration and
// seeded into the subscription_plan table on startup. Price is expressed in
// minor currency units to keep the config file free of decimal parsing.
type PlanConfig struct {
	ID             string `json:"id" mapstructure:"id"`
	GatewayPriceID string `json:"gateway_price_id" mapstructure:"gateway_price_id"`
	Name           string `json:"name" mapstructure:"name"`
	PriceMinor     int64  `json:"price_minor" mapstructure:"price_minor"`
	Currency       string `json:"currency" mapstructure:"currency"`
}
