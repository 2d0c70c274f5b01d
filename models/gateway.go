package models

// AuthTokenResponse is the body of the client-credentials token exchange.
// expires_in arrives as a string from the live gateway.
type AuthTokenResponse struct {
	AccessToken string     `json:"access_token"`
	ExpiresIn   FlexString `json:"expires_in"`
}

// STKPushRequest is the payment-initiation payload.
type STKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKQueryRequest is the payment status query payload.
type STKQueryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

// InitiatePaymentRequest is the body accepted by the payment initiation endpoint.
type InitiatePaymentRequest struct {
	PhoneNumber      string `json:"phone_number"`
	Amount           int64  `json:"amount"`
	AccountReference string `json:"account_reference"`
	Description      string `json:"description"`
	CallbackURL      string `json:"callback_url,omitempty"`
}
