package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/taskearn/paycore/internal/usecase"
)

// STKCallbackPayload is the gateway's collection callback envelope.
type STKCallbackPayload struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []CallbackItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// CallbackItem is one name/value pair from the callback metadata.
type CallbackItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

// ToUseCaseInput extracts the reconciliation fields, keeping the raw
// payload for audit.
func (p *STKCallbackPayload) ToUseCaseInput(raw json.RawMessage) usecase.CollectionCallbackInput {
	cb := p.Body.StkCallback

	input := usecase.CollectionCallbackInput{
		CorrelationID: cb.CheckoutRequestID,
		ResultCode:    cb.ResultCode,
		ResultDesc:    cb.ResultDesc,
		Amount:        decimal.Zero,
		Raw:           raw,
	}

	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			var amount float64
			if err := json.Unmarshal(item.Value, &amount); err == nil {
				input.Amount = decimal.NewFromFloat(amount)
			}
		case "MpesaReceiptNumber":
			var receipt string
			if err := json.Unmarshal(item.Value, &receipt); err == nil {
				input.Receipt = receipt
			}
		}
	}

	return input
}

// B2CResultPayload is the gateway's disbursement result envelope.
type B2CResultPayload struct {
	Result struct {
		ResultType               int    `json:"ResultType"`
		ResultCode               int    `json:"ResultCode"`
		ResultDesc               string `json:"ResultDesc"`
		OriginatorConversationID string `json:"OriginatorConversationID"`
		ConversationID           string `json:"ConversationID"`
		TransactionID            string `json:"TransactionID"`
		ResultParameters         struct {
			ResultParameter []ResultParameter `json:"ResultParameter"`
		} `json:"ResultParameters"`
	} `json:"Result"`
}

// ResultParameter is one key/value pair from the B2C result.
type ResultParameter struct {
	Key   string          `json:"Key"`
	Value json.RawMessage `json:"Value"`
}

// ToUseCaseInput extracts the reconciliation fields, keeping the raw
// payload for audit.
func (p *B2CResultPayload) ToUseCaseInput(raw json.RawMessage) usecase.DisbursementCallbackInput {
	res := p.Result

	input := usecase.DisbursementCallbackInput{
		CorrelationID: res.ConversationID,
		ResultCode:    res.ResultCode,
		ResultDesc:    res.ResultDesc,
		Receipt:       res.TransactionID,
		Raw:           raw,
	}

	for _, param := range res.ResultParameters.ResultParameter {
		if param.Key == "TransactionReceipt" {
			var receipt string
			if err := json.Unmarshal(param.Value, &receipt); err == nil && receipt != "" {
				input.Receipt = receipt
			}
		}
	}

	return input
}

// CallbackAck is the body the gateway expects in acknowledgement.
type CallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// AcceptedAck acknowledges receipt regardless of reconciliation
// outcome, so the gateway stops redelivering.
func AcceptedAck() CallbackAck {
	return CallbackAck{ResultCode: 0, ResultDesc: "Accepted"}
}
