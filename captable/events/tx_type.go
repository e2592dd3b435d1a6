package events

import "fmt"

// TxType is the transaction kind carried by a TxCreated event. The order
// matches the program's enum and must not change.
type TxType uint8

const (
	TxInvalid TxType = iota
	TxIssuerAuthorizedSharesAdjustment
	TxStockClassAuthorizedSharesAdjustment
	TxStockAcceptance
	TxStockCancellation
	TxStockIssuance
	TxStockReissuance
	TxStockRepurchase
	TxStockRetraction
	TxStockTransfer
	TxConvertibleIssuance
	TxEquityCompensationIssuance
	TxStockPlanPoolAdjustment
	TxWarrantIssuance
	TxEquityCompensationExercise
)

var txTypeNames = [...]string{
	TxInvalid:                              "Invalid",
	TxIssuerAuthorizedSharesAdjustment:     "IssuerAuthorizedSharesAdjustment",
	TxStockClassAuthorizedSharesAdjustment: "StockClassAuthorizedSharesAdjustment",
	TxStockAcceptance:                      "StockAcceptance",
	TxStockCancellation:                    "StockCancellation",
	TxStockIssuance:                        "StockIssuance",
	TxStockReissuance:                      "StockReissuance",
	TxStockRepurchase:                      "StockRepurchase",
	TxStockRetraction:                      "StockRetraction",
	TxStockTransfer:                        "StockTransfer",
	TxConvertibleIssuance:                  "ConvertibleIssuance",
	TxEquityCompensationIssuance:           "EquityCompensationIssuance",
	TxStockPlanPoolAdjustment:              "StockPlanPoolAdjustment",
	TxWarrantIssuance:                      "WarrantIssuance",
	TxEquityCompensationExercise:           "EquityCompensationExercise",
}

func (t TxType) String() string {
	if int(t) < len(txTypeNames) {
		return txTypeNames[t]
	}
	return fmt.Sprintf("TxType(%d)", uint8(t))
}
