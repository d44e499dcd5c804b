package models

// PaymentIntent is what the processor returns when a donation is initiated
type PaymentIntent struct {
	Id           string
	ClientSecret string
}

// PaymentMethodDetails holds the billing data the processor stores for a card
type PaymentMethodDetails struct {
	BillingName    string
	BillingAddress Address
	Brand          string
	Wallet         string
}

// DonationConfirmation is the normalized processor success payload
type DonationConfirmation struct {
	IntentId        string `json:"intent_id"`
	PaymentMethodId string `json:"payment_method_id"`
}
